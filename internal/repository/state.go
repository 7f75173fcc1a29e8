package repository

import (
	"context"
	"time"

	"collabboard/internal/domain"
)

// StateRepository 定义了跨连接共享的短时状态操作，由 Redis 实现。
// 这是连接之间唯一真正共享的可变状态；实现只依赖单 key 的原子操作
// (set/incr/del/hash)，从不要求多 key 事务。
type StateRepository interface {
	// === Presence ===

	// SetGlobalPresence 用重新计算好的在线用户集整体覆盖全局在线表。
	SetGlobalPresence(ctx context.Context, users domain.PresenceSet) error

	// ClearGlobalPresence 删除全局在线表（最后一个用户下线时调用）。
	ClearGlobalPresence(ctx context.Context) error

	// GetGlobalPresence 读取当前的全局在线表。
	GetGlobalPresence(ctx context.Context) (domain.PresenceSet, error)

	// === Active Drawing ===

	// SetActiveDrawing 记录房间当前活跃的画布 ID。
	// 它存放在这里而不是房间记录里，因为它比房间元数据变化频繁得多，
	// 且每次加入房间都要读取。
	SetActiveDrawing(ctx context.Context, roomID int64, drawingID int64) error

	// ActiveDrawing 读取房间当前活跃的画布 ID；未设置时返回 ErrNotFound。
	ActiveDrawing(ctx context.Context, roomID int64) (int64, error)

	// CleanupRoomState 删除房间相关的全部短时 key（房间清空后调用）。
	CleanupRoomState(ctx context.Context, roomID int64) error

	// === Refresh Token Counters ===

	// TokenCount 读取用户的刷新令牌计数，key 不存在时初始化为 0。
	TokenCount(ctx context.Context, userID uint) (int64, error)

	// IncrementTokenCount 原子递增刷新令牌计数并返回新值。
	// 递增会使该用户之前签发的所有刷新令牌失效。
	IncrementTokenCount(ctx context.Context, userID uint) (int64, error)

	// === Channel History Cache ===

	// CacheChannelHistory 缓存某个频道的完整消息历史。
	CacheChannelHistory(ctx context.Context, channel string, msgs []domain.Message, ttl time.Duration) error

	// CachedChannelHistory 读取缓存的频道历史；未命中返回 ErrNotFound。
	CachedChannelHistory(ctx context.Context, channel string) ([]domain.Message, error)

	// === Rate Limiting ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 表示超限。
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
