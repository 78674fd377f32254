package service

import (
	"testing"

	"rcc-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAccessService_CheckProjectAuth(t *testing.T) {
	f := newFixture(t)
	auth := NewAccessService(f.store, zap.NewNop())

	tests := []struct {
		name      string
		user      *domain.User
		projectID int64
		want      bool
	}{
		{name: "anonymous", user: nil, projectID: projectOrder, want: false},
		{name: "admin", user: adminUser, projectID: projectPay, want: true},
		{name: "member", user: memberUser, projectID: projectOrder, want: true},
		{name: "member of other project", user: memberUser, projectID: projectPay, want: false},
		{name: "environment grant only", user: guestUser, projectID: projectPay, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := auth.CheckProjectAuth(f.ctx, productMall, tt.projectID, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAccessService_CheckEnvironmentAuth(t *testing.T) {
	f := newFixture(t)
	auth := NewAccessService(f.store, zap.NewNop())

	ok, err := auth.CheckEnvironmentAuth(f.ctx, productMall, projectPay, envPayDev, guestUser)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.CheckEnvironmentAuth(f.ctx, productMall, projectOrder, envOrderDev, guestUser)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = auth.CheckEnvironmentAuth(f.ctx, productMall, projectOrder, envOrderProd, memberUser)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.CheckEnvironmentAuth(f.ctx, productMall, projectOrder, envOrderProd, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessService_LoadVersionAccess(t *testing.T) {
	f := newFixture(t)
	a := f.mustSave(t, envOrderDev, "a")
	p := f.mustSave(t, envPayDev, "p")
	auth := NewAccessService(f.store, zap.NewNop())

	// 没有成员关系和授权时不能退化为"全部版本"
	maps, err := auth.LoadVersionAccess(f.ctx, outsiderUser)
	require.NoError(t, err)
	assert.Empty(t, maps.Versions)

	maps, err = auth.LoadVersionAccess(f.ctx, guestUser)
	require.NoError(t, err)
	assert.Len(t, maps.Versions, 1)
	assert.Contains(t, maps.Versions, p)
	assert.Contains(t, maps.Environments, envPayDev)
	assert.Empty(t, maps.Projects)

	maps, err = auth.LoadVersionAccess(f.ctx, memberUser)
	require.NoError(t, err)
	assert.Len(t, maps.Versions, 1)
	assert.Contains(t, maps.Versions, a)
	assert.Contains(t, maps.Projects, projectOrder)

	maps, err = auth.LoadVersionAccess(f.ctx, adminUser)
	require.NoError(t, err)
	assert.Len(t, maps.Versions, 2)
	assert.Empty(t, maps.Projects)

	maps, err = auth.LoadVersionAccess(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, maps.Versions)
}
