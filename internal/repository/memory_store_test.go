package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"rcc-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WithTx_RestoresOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Repos().Versions.CreateVersion(ctx, &domain.Version{EnvironmentID: 1, Name: "v1"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(repos *Repositories) error {
		if _, err := repos.Versions.UpdateVersion(ctx, id, domain.VersionPatch{Deleted: domain.DeletedDelete.Ptr(), UpdateTime: time.Now()}); err != nil {
			return err
		}
		if _, err := repos.Groups.CreateGroup(ctx, &domain.ConfigGroup{VersionID: id, Name: "g"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	v, err := store.Repos().Versions.GetVersion(ctx, id)
	require.NoError(t, err)
	assert.False(t, v.IsDeleted())

	groups, err := store.Repos().Groups.ListGroups(ctx, GroupQuery{VersionID: id})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Repos().Versions.CreateVersion(ctx, &domain.Version{EnvironmentID: 1, Name: "v1"})
	require.NoError(t, err)

	v, err := store.Repos().Versions.GetVersion(ctx, id)
	require.NoError(t, err)
	v.Name = "mutated"

	again, err := store.Repos().Versions.GetVersion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v1", again.Name)
}

func TestVersionQuery_Matches(t *testing.T) {
	v := &domain.Version{ID: 3, EnvironmentID: 10, ProjectID: 20, Name: "v1"}

	assert.True(t, VersionQuery{}.Matches(v))
	assert.True(t, VersionQuery{IDs: []int64{1, 3}, EnvironmentID: 10, Deleted: domain.DeletedOK.Ptr()}.Matches(v))
	assert.False(t, VersionQuery{ExcludeID: 3}.Matches(v))
	assert.False(t, VersionQuery{ProjectIDs: []int64{21}}.Matches(v))
	assert.False(t, VersionQuery{Name: "v2"}.Matches(v))
	assert.False(t, VersionQuery{Deleted: domain.DeletedDelete.Ptr()}.Matches(v))
}

func TestMemoryAccess_SkipsDeleted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.AddProject(domain.Project{ID: 1, Name: "live"})
	store.AddProject(domain.Project{ID: 2, Name: "gone", Deleted: domain.DeletedDelete})
	store.AddProjectMember(7, 1)
	store.AddProjectMember(7, 2)

	projects, err := store.Repos().Access.ListMemberProjects(ctx, 7)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "live", projects[0].Name)

	ok, err := store.Repos().Access.IsProjectMember(ctx, 7, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Repos().Access.IsProjectMember(ctx, 8, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
