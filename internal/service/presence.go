package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
)

// PresenceService 把实时连接注册表中的全局在线名单同步到 Redis，
// 供其他进程（后台任务、运维查询）读取。名单本身由连接注册表
// 重新计算后整体传入，这里只做替换式写入。
type PresenceService struct {
	stateRepo repository.StateRepository
}

// NewPresenceService 创建 PresenceService 实例。
func NewPresenceService(stateRepo repository.StateRepository) *PresenceService {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for PresenceService")
	}
	return &PresenceService{stateRepo: stateRepo}
}

// Sync 用最新的在线名单整体替换 Redis 中的快照；
// 名单为空时直接删除对应的 key。
// 同步失败不影响连接生命周期，只记录日志。
func (s *PresenceService) Sync(ctx context.Context, online domain.PresenceSet) {
	var err error
	if len(online) == 0 {
		err = s.stateRepo.ClearGlobalPresence(ctx)
	} else {
		err = s.stateRepo.SetGlobalPresence(ctx, online)
	}
	if err != nil {
		logrus.WithError(err).WithField("online_count", len(online)).
			Warn("Failed to sync global presence snapshot")
	}
}

// Snapshot 返回 Redis 中的全局在线名单快照。
func (s *PresenceService) Snapshot(ctx context.Context) (domain.PresenceSet, error) {
	online, err := s.stateRepo.GetGlobalPresence(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to read global presence snapshot")
		return nil, ErrStoreUnavailable
	}
	return online, nil
}
