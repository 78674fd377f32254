package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rcc-core/internal/cache"
	"rcc-core/internal/domain"
	"rcc-core/internal/notify"
	"rcc-core/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VersionService 版本生命周期
// 存储变更全部在事务内完成；缓存失效与事件发布只在提交之后进行
type VersionService struct {
	store     repository.Store
	cache     cache.RccCache
	auth      Authorizer
	publisher notify.Publisher
	logger    *zap.Logger

	now         func() time.Time
	newCheckSum func() string
}

// NewVersionService 创建版本服务，publisher 为 nil 时不发布事件
func NewVersionService(store repository.Store, rccCache cache.RccCache, auth Authorizer, publisher notify.Publisher, logger *zap.Logger) *VersionService {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &VersionService{
		store:       store,
		cache:       rccCache,
		auth:        auth,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
		newCheckSum: func() string { return uuid.New().String() },
	}
}

// SaveVersion 创建版本，返回新版本 id
func (s *VersionService) SaveVersion(ctx context.Context, environmentID int64, name, memo string, user *domain.User) (int64, error) {
	if environmentID <= 0 {
		return 0, domain.ErrEnvironmentIDNotExists
	}
	if strings.TrimSpace(name) == "" {
		return 0, domain.ErrVersionNameNotEmpty
	}

	env, err := s.store.Repos().Catalog.GetEnvironment(ctx, environmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrEnvironmentNotExists
		}
		return 0, fmt.Errorf("failed to get environment: %w", err)
	}
	if env.IsDeleted() {
		return 0, domain.ErrEnvironmentNotExists
	}

	ok, err := s.auth.CheckProjectAuth(ctx, env.ProductID, env.ProjectID, user)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrPrivMis
	}

	now := s.now()
	v := &domain.Version{
		EnvironmentID: env.ID,
		ProjectID:     env.ProjectID,
		ProductID:     env.ProductID,
		Name:          name,
		Memo:          memo,
		CheckSum:      s.newCheckSum(),
		CheckSumDate:  now,
		Deleted:       domain.DeletedOK,
		CreateTime:    now,
		UpdateTime:    now,
	}

	err = s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		existing, err := repos.Versions.FindVersion(ctx, repository.VersionQuery{
			EnvironmentID: env.ID,
			Name:          name,
			Deleted:       domain.DeletedOK.Ptr(),
		})
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrVersionExists
		}
		_, err = repos.Versions.CreateVersion(ctx, v)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.cache.EvictVersions(ctx, env.ID)
	s.publish(ctx, notify.EventCreated, v)

	s.logger.Info("Version created",
		zap.Int64("version_id", v.ID),
		zap.String("name", v.Name),
		zap.Int64("environment_id", v.EnvironmentID),
	)
	return v.ID, nil
}

// UpdateVersion 修改版本名称/备注，name 为空时不改名，memo 为 nil 时不改备注
// 环境和原名称以存储中的版本为准，版本不存在时返回 0
func (s *VersionService) UpdateVersion(ctx context.Context, version *domain.Version, name string, memo *string, user *domain.User) (int64, error) {
	if version == nil || version.ID <= 0 {
		return 0, domain.NewBizError(domain.StatusParamError, "version is required")
	}

	rename := strings.TrimSpace(name) != ""
	patch := domain.VersionPatch{Memo: memo, UpdateTime: s.now()}
	if rename {
		patch.Name = &name
	}

	var (
		stored *domain.Version
		cnt    int64
	)
	err := s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		v, err := repos.Versions.GetVersion(ctx, version.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		stored = v
		if rename {
			existing, err := repos.Versions.FindVersion(ctx, repository.VersionQuery{
				ExcludeID:     v.ID,
				EnvironmentID: v.EnvironmentID,
				Name:          name,
				Deleted:       domain.DeletedOK.Ptr(),
			})
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrVersionRenameExists
			}
		}
		cnt, err = repos.Versions.UpdateVersion(ctx, v.ID, patch)
		return err
	})
	if err != nil {
		return 0, err
	}
	if stored == nil {
		return 0, nil
	}

	renamed := rename && name != stored.Name
	s.cache.EvictVersionByID(ctx, []int64{stored.ID})
	if renamed {
		s.cache.EvictVersions(ctx, stored.EnvironmentID)
	}

	updated := *stored
	if rename {
		updated.Name = name
	}
	if memo != nil {
		updated.Memo = *memo
	}
	updated.UpdateTime = patch.UpdateTime
	s.publish(ctx, notify.EventUpdated, &updated)

	s.logger.Info("Version updated",
		zap.Int64("version_id", stored.ID),
		zap.Bool("renamed", renamed),
		zap.Int64("rows", cnt),
	)
	return cnt, nil
}

// DeleteCascadeByVersionID 软删除版本及其分组、配置项，版本不存在时返回 0
// 版本此前已删除时仍清理残留的分组、配置项，但不再发布删除事件
func (s *VersionService) DeleteCascadeByVersionID(ctx context.Context, versionID int64) (int64, error) {
	var (
		version        *domain.Version
		alreadyDeleted bool
		cnt            int64
	)
	err := s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		v, err := repos.Versions.GetVersion(ctx, versionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		version = v
		alreadyDeleted = v.IsDeleted()
		now := s.now()
		cnt, err = repos.Versions.UpdateVersion(ctx, v.ID, domain.VersionPatch{
			Deleted:    domain.DeletedDelete.Ptr(),
			UpdateTime: now,
		})
		if err != nil {
			return err
		}
		return softDeleteChildren(ctx, repos, v.ID, now)
	})
	if err != nil {
		return 0, err
	}
	if version == nil {
		return 0, nil
	}

	s.cache.DeleteVersionCascade(ctx, version)
	if !alreadyDeleted {
		s.publish(ctx, notify.EventDeleted, version)
	}

	s.logger.Info("Version deleted",
		zap.Int64("version_id", version.ID),
		zap.Int64("environment_id", version.EnvironmentID),
		zap.Bool("already_deleted", alreadyDeleted),
	)
	return cnt, nil
}

// DeleteByEnvironmentID 软删除环境下所有未删除的版本（含分组、配置项）
func (s *VersionService) DeleteByEnvironmentID(ctx context.Context, environmentID int64) (int64, error) {
	if environmentID <= 0 {
		return 0, domain.ErrEnvironmentIDNotExists
	}
	return s.deleteVersions(ctx, repository.VersionQuery{EnvironmentID: environmentID})
}

// DeleteByProjectID 软删除工程下所有未删除的版本（含分组、配置项）
func (s *VersionService) DeleteByProjectID(ctx context.Context, projectID int64) (int64, error) {
	if projectID <= 0 {
		return 0, domain.NewBizError(domain.StatusParamError, "project id is required")
	}
	return s.deleteVersions(ctx, repository.VersionQuery{ProjectID: projectID})
}

func (s *VersionService) deleteVersions(ctx context.Context, q repository.VersionQuery) (int64, error) {
	q.Deleted = domain.DeletedOK.Ptr()

	var (
		versions []*domain.Version
		cnt      int64
	)
	err := s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		var err error
		versions, err = repos.Versions.ListVersions(ctx, q)
		if err != nil || len(versions) == 0 {
			return err
		}
		now := s.now()
		cnt, err = repos.Versions.UpdateVersions(ctx, domain.VersionPatch{
			Deleted:    domain.DeletedDelete.Ptr(),
			UpdateTime: now,
		}, q)
		if err != nil {
			return err
		}
		for _, v := range versions {
			if err := softDeleteChildren(ctx, repos, v.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(versions))
	seen := map[int64]bool{}
	var envIDs []int64
	for _, v := range versions {
		ids = append(ids, v.ID)
		if !seen[v.EnvironmentID] {
			seen[v.EnvironmentID] = true
			envIDs = append(envIDs, v.EnvironmentID)
		}
	}
	s.cache.EvictVersionByID(ctx, ids)
	s.cache.EvictVersions(ctx, envIDs...)

	for _, v := range versions {
		s.publish(ctx, notify.EventDeleted, v)
	}

	s.logger.Info("Versions deleted",
		zap.Int64s("version_ids", ids),
		zap.Int64s("environment_ids", envIDs),
	)
	return cnt, nil
}

// softDeleteChildren 在调用方事务内软删除版本下的分组和配置项
func softDeleteChildren(ctx context.Context, repos *repository.Repositories, versionID int64, now time.Time) error {
	if _, err := repos.Groups.SoftDeleteGroupsByVersionID(ctx, versionID, now); err != nil {
		return err
	}
	_, err := repos.Items.SoftDeleteItemsByVersionID(ctx, versionID, now)
	return err
}

// CopyConfigItemsFromVersion 把源版本下所有未删除的分组和配置项复制到目标版本
func (s *VersionService) CopyConfigItemsFromVersion(ctx context.Context, srcVersionID, destVersionID int64) error {
	return s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		dest, err := liveVersion(ctx, repos, destVersionID)
		if err != nil {
			return err
		}
		if dest == nil {
			return domain.ErrVersionCopyDestNotExists
		}
		src, err := liveVersion(ctx, repos, srcVersionID)
		if err != nil {
			return err
		}
		if src == nil {
			return domain.ErrVersionCopySrcNotExists
		}

		groups, err := repos.Groups.ListGroups(ctx, repository.GroupQuery{
			VersionID: src.ID,
			Deleted:   domain.DeletedOK.Ptr(),
		})
		if err != nil {
			return err
		}

		now := s.now()
		for _, g := range groups {
			copied := &domain.ConfigGroup{
				Name:          g.Name,
				VersionID:     dest.ID,
				EnvironmentID: dest.EnvironmentID,
				ProjectID:     dest.ProjectID,
				ProductID:     dest.ProductID,
				Deleted:       domain.DeletedOK,
				CreateTime:    now,
				UpdateTime:    now,
			}
			if _, err := repos.Groups.CreateGroup(ctx, copied); err != nil {
				return err
			}
			if err := copyGroupItems(ctx, repos, g.ID, copied, now); err != nil {
				return err
			}
		}

		s.logger.Debug("Config items copied",
			zap.Int64("src_version_id", src.ID),
			zap.Int64("dest_version_id", dest.ID),
			zap.Int("groups", len(groups)),
		)
		return nil
	})
}

// CopyConfigItemsFromGroup 把源分组下未删除的配置项复制到已存在的目标分组
func (s *VersionService) CopyConfigItemsFromGroup(ctx context.Context, srcGroupID int64, destGroup *domain.ConfigGroup) error {
	if destGroup == nil || destGroup.ID <= 0 {
		return domain.NewBizError(domain.StatusParamError, "destination group is required")
	}
	return s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		return copyGroupItems(ctx, repos, srcGroupID, destGroup, s.now())
	})
}

func copyGroupItems(ctx context.Context, repos *repository.Repositories, srcGroupID int64, dest *domain.ConfigGroup, now time.Time) error {
	items, err := repos.Items.ListItems(ctx, repository.ItemQuery{
		GroupID: srcGroupID,
		Deleted: domain.DeletedOK.Ptr(),
	})
	if err != nil || len(items) == 0 {
		return err
	}
	copies := make([]*domain.ConfigItem, 0, len(items))
	for _, it := range items {
		copies = append(copies, &domain.ConfigItem{
			Name:          it.Name,
			Val:           it.Val,
			GroupID:       dest.ID,
			VersionID:     dest.VersionID,
			EnvironmentID: dest.EnvironmentID,
			ProjectID:     dest.ProjectID,
			ProductID:     dest.ProductID,
			Deleted:       domain.DeletedOK,
			CreateTime:    now,
			UpdateTime:    now,
		})
	}
	return repos.Items.CreateItems(ctx, copies)
}

// liveVersion 返回未删除的版本，不存在或已删除时返回 nil, nil
func liveVersion(ctx context.Context, repos *repository.Repositories, id int64) (*domain.Version, error) {
	if id <= 0 {
		return nil, nil
	}
	v, err := repos.Versions.GetVersion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if v.IsDeleted() {
		return nil, nil
	}
	return v, nil
}

func (s *VersionService) publish(ctx context.Context, t notify.EventType, v *domain.Version) {
	event := notify.VersionEvent{
		Type:          t,
		VersionID:     v.ID,
		VersionName:   v.Name,
		EnvironmentID: v.EnvironmentID,
		ProjectID:     v.ProjectID,
		CheckSum:      v.CheckSum,
		At:            s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish version event",
			zap.String("type", string(t)),
			zap.Int64("version_id", v.ID),
			zap.Error(err),
		)
	}
}
