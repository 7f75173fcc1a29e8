package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string // Redis key 前缀，方便多实例共用一个 Redis
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cb:" // 默认前缀 "cb:" (collabboard)
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) globalPresenceKey() string {
	return r.keyPrefix + "users"
}

func (r *RedisStateRepository) roomDrawingKey(roomID int64) string {
	return fmt.Sprintf("%sroom:%d:drawingid", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) channelHistoryKey(channel string) string {
	return fmt.Sprintf("%schannel:%s:messages", r.keyPrefix, channel)
}

func (r *RedisStateRepository) tokenCountKey(userID uint) string {
	return fmt.Sprintf("%suser:%d:tokencount", r.keyPrefix, userID)
}

// --- StateRepository Interface Implementation ---

// SetGlobalPresence 用重新计算好的在线用户集整体覆盖全局在线表。
// 先删后写保证不残留已下线用户的 field；两条命令通过 Pipeline 发出。
func (r *RedisStateRepository) SetGlobalPresence(ctx context.Context, users domain.PresenceSet) error {
	key := r.globalPresenceKey()
	if len(users) == 0 {
		return r.ClearGlobalPresence(ctx)
	}
	fields := make(map[string]interface{}, len(users))
	for id, name := range users {
		fields[id] = name
	}
	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set global presence on %s: %w", key, err)
	}
	return nil
}

// ClearGlobalPresence 删除全局在线表
func (r *RedisStateRepository) ClearGlobalPresence(ctx context.Context) error {
	key := r.globalPresenceKey()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: clear global presence on %s: %w", key, err)
	}
	return nil
}

// GetGlobalPresence 读取当前的全局在线表
func (r *RedisStateRepository) GetGlobalPresence(ctx context.Context) (domain.PresenceSet, error) {
	key := r.globalPresenceKey()
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get global presence from %s: %w", key, err)
	}
	return domain.PresenceSet(fields), nil
}

// SetActiveDrawing 记录房间当前活跃的画布 ID
func (r *RedisStateRepository) SetActiveDrawing(ctx context.Context, roomID int64, drawingID int64) error {
	key := r.roomDrawingKey(roomID)
	err := r.client.Set(ctx, key, strconv.FormatInt(drawingID, 10), 0).Err()
	if err != nil {
		return fmt.Errorf("redis: set active drawing %d for room %d: %w", drawingID, roomID, err)
	}
	return nil
}

// ActiveDrawing 读取房间当前活跃的画布 ID
func (r *RedisStateRepository) ActiveDrawing(ctx context.Context, roomID int64) (int64, error) {
	key := r.roomDrawingKey(roomID)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get active drawing for room %d from %s: %w", roomID, key, err)
	}
	drawingID, parseErr := strconv.ParseInt(val, 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("redis: parse active drawing %q for room %d: %w", val, roomID, parseErr)
	}
	return drawingID, nil
}

// CleanupRoomState 删除房间相关的全部短时 key
func (r *RedisStateRepository) CleanupRoomState(ctx context.Context, roomID int64) error {
	keys := []string{
		r.roomDrawingKey(roomID),
		r.channelHistoryKey(strconv.FormatInt(roomID, 10)),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: cleanup state for room %d: %w", roomID, err)
	}
	return nil
}

// TokenCount 读取用户的刷新令牌计数，key 不存在时初始化为 0
func (r *RedisStateRepository) TokenCount(ctx context.Context, userID uint) (int64, error) {
	key := r.tokenCountKey(userID)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			if setErr := r.client.Set(ctx, key, "0", 0).Err(); setErr != nil {
				return 0, fmt.Errorf("redis: init token count for user %d: %w", userID, setErr)
			}
			return 0, nil
		}
		return 0, fmt.Errorf("redis: get token count for user %d: %w", userID, err)
	}
	count, parseErr := strconv.ParseInt(val, 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("redis: parse token count %q for user %d: %w", val, userID, parseErr)
	}
	return count, nil
}

// IncrementTokenCount 原子递增刷新令牌计数并返回新值
func (r *RedisStateRepository) IncrementTokenCount(ctx context.Context, userID uint) (int64, error) {
	key := r.tokenCountKey(userID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: increment token count for user %d: %w", userID, err)
	}
	return count, nil
}

// CacheChannelHistory 缓存某个频道的完整消息历史
func (r *RedisStateRepository) CacheChannelHistory(ctx context.Context, channel string, msgs []domain.Message, ttl time.Duration) error {
	key := r.channelHistoryKey(channel)
	payload, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("redis: marshal history for channel %s: %w", channel, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: cache history for channel %s on %s: %w", channel, key, err)
	}
	return nil
}

// CachedChannelHistory 读取缓存的频道历史
func (r *RedisStateRepository) CachedChannelHistory(ctx context.Context, channel string) ([]domain.Message, error) {
	key := r.channelHistoryKey(channel)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get cached history for channel %s from %s: %w", channel, key, err)
	}
	var msgs []domain.Message
	if err := json.Unmarshal([]byte(val), &msgs); err != nil {
		logrus.WithError(err).Warnf("redis: corrupt history cache for channel %s, treating as miss", channel)
		return nil, repository.ErrNotFound
	}
	return msgs, nil
}

// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
// 使用 Pipeline 执行 INCR 和 EXPIRE 以减少网络往返。
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.keyPrefix + "ratelimit:" + key
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", fullKey, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: get incr result for rate limit on key %s: %w", fullKey, err)
	}
	return count > int64(limit), nil
}
