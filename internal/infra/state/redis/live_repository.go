// Package redisstate 提供 LiveStateRepository 接口的 Redis 实现。
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

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
)

// RedisLiveRepository 是 LiveStateRepository 接口的 Redis 实现
type RedisLiveRepository struct {
	client    *redis.Client
	keyPrefix string // Redis key 前缀，方便多环境共用一个实例
}

// NewRedisLiveRepository 创建 RedisLiveRepository 实例
func NewRedisLiveRepository(client *redis.Client, keyPrefix string) *RedisLiveRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisLiveRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "wb:" // 默认前缀 "wb:" (whiteboard)
	}
	return &RedisLiveRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisLiveRepository) boardStagedKey(boardID uint) string {
	return fmt.Sprintf("%sboard:%d:staged", r.keyPrefix, boardID)
}

func (r *RedisLiveRepository) boardOpCountKey(boardID uint) string {
	return fmt.Sprintf("%sboard:%d:op_count", r.keyPrefix, boardID)
}

func (r *RedisLiveRepository) dirtyBoardsKey() string {
	return r.keyPrefix + "boards:dirty"
}

func (r *RedisLiveRepository) roomStateCacheKey(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:state", r.keyPrefix, roomID)
}

// RoomEventChannel 返回房间广播频道名 (Hub 订阅时也需要)。
func (r *RedisLiveRepository) RoomEventChannel(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:events", r.keyPrefix, roomID)
}

// --- LiveStateRepository Interface Implementation ---

// StagePatch 将一个增量写入画板的暂存区，并把画板标记为待折叠。
func (r *RedisLiveRepository) StagePatch(ctx context.Context, patch domain.Patch) error {
	stagedKey := r.boardStagedKey(patch.BoardID)
	pipe := r.client.Pipeline()
	if patch.Kind == "draw" {
		pipe.HSet(ctx, stagedKey, patch.Cell, patch.Color)
	} else {
		// erase: 以空值覆盖，折叠时表示从载荷中删除该单元格。
		// 不能用 HDel，否则 "擦掉已提交单元格" 的增量会在折叠时丢失。
		pipe.HSet(ctx, stagedKey, patch.Cell, "")
	}
	pipe.SAdd(ctx, r.dirtyBoardsKey(), strconv.FormatUint(uint64(patch.BoardID), 10))
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis: failed to stage patch for board %d (cell %s): %w", patch.BoardID, patch.Cell, err)
	}
	return nil
}

// GetStagedCells 返回画板暂存区的全部单元格。
func (r *RedisLiveRepository) GetStagedCells(ctx context.Context, boardID uint) (domain.BoardPayload, error) {
	key := r.boardStagedKey(boardID)
	cells, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get staged cells for board %d from %s: %w", boardID, key, err)
	}
	return domain.BoardPayload(cells), nil
}

// ClearStaged 清空画板暂存区并取消待折叠标记。
func (r *RedisLiveRepository) ClearStaged(ctx context.Context, boardID uint) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.boardStagedKey(boardID))
	pipe.SRem(ctx, r.dirtyBoardsKey(), strconv.FormatUint(uint64(boardID), 10))
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis: failed to clear staged cells for board %d: %w", boardID, err)
	}
	return nil
}

// ListDirtyBoards 返回所有待折叠的画板 ID。
func (r *RedisLiveRepository) ListDirtyBoards(ctx context.Context) ([]uint, error) {
	members, err := r.client.SMembers(ctx, r.dirtyBoardsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list dirty boards: %w", err)
	}
	boardIDs := make([]uint, 0, len(members))
	for _, member := range members {
		id, parseErr := strconv.ParseUint(member, 10, 32)
		if parseErr != nil {
			logrus.Warnf("redis: skipping malformed dirty board id %q: %v", member, parseErr)
			continue
		}
		boardIDs = append(boardIDs, uint(id))
	}
	return boardIDs, nil
}

// IncrementOpCount 原子地增加画板的操作计数器。
func (r *RedisLiveRepository) IncrementOpCount(ctx context.Context, boardID uint) error {
	key := r.boardOpCountKey(boardID)
	pipe := r.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 1*time.Hour)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis: failed to increment op count for board %d on key %s: %w", boardID, key, err)
	}
	return nil
}

// GetOpCount 读取画板的操作计数。
func (r *RedisLiveRepository) GetOpCount(ctx context.Context, boardID uint) (int64, error) {
	key := r.boardOpCountKey(boardID)
	countStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil // Key 不存在视为 0
		}
		return 0, fmt.Errorf("redis: failed to get op count for board %d from %s: %w", boardID, key, err)
	}
	count, parseErr := strconv.ParseInt(countStr, 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("redis: failed to parse op count '%s' for board %d: %w", countStr, boardID, parseErr)
	}
	return count, nil
}

// ResetOpCount 重置画板的操作计数器。
func (r *RedisLiveRepository) ResetOpCount(ctx context.Context, boardID uint) error {
	key := r.boardOpCountKey(boardID)
	err := r.client.Set(ctx, key, "0", 1*time.Hour).Err()
	if err != nil {
		return fmt.Errorf("redis: failed to reset op count for board %d on key %s: %w", boardID, key, err)
	}
	return nil
}

// GetStateCache 尝试从缓存获取房间的激活状态。
func (r *RedisLiveRepository) GetStateCache(ctx context.Context, roomID uint) (*domain.BoardState, error) {
	key := r.roomStateCacheKey(roomID)
	stateStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get state cache for room %d from %s: %w", roomID, key, err)
	}
	var state domain.BoardState
	if err := json.Unmarshal([]byte(stateStr), &state); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal state cache for room %d from %s: %w", roomID, key, err)
	}
	return &state, nil
}

// SetStateCache 将激活状态写入缓存。ttl 为 0 表示不过期。
func (r *RedisLiveRepository) SetStateCache(ctx context.Context, roomID uint, state *domain.BoardState, ttl time.Duration) error {
	key := r.roomStateCacheKey(roomID)
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal state for cache (room %d, version %d): %w", roomID, state.Version, err)
	}
	err = r.client.Set(ctx, key, string(stateBytes), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis: failed to set state cache for room %d on key %s: %w", roomID, key, err)
	}
	return nil
}

// InvalidateStateCache 删除房间的激活状态缓存。
func (r *RedisLiveRepository) InvalidateStateCache(ctx context.Context, roomID uint) error {
	key := r.roomStateCacheKey(roomID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to invalidate state cache for room %d: %w", roomID, err)
	}
	return nil
}

// PublishEvent 将事件发布到房间的广播频道。
func (r *RedisLiveRepository) PublishEvent(ctx context.Context, event domain.RoomEvent) error {
	channel := r.RoomEventChannel(event.RoomID)
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("redis: failed to encode event for publish (room %d): %w", event.RoomID, err)
	}
	err = r.client.Publish(ctx, channel, payload).Err()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(payload),
			"event_type":   event.Type,
			"room_id":      event.RoomID,
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: failed to publish event to channel %s: %w", channel, err)
	}
	return nil
}

// SubscribeRoom 订阅房间广播频道，把收到的消息转发到返回的通道。
// 返回的取消函数关闭订阅；订阅结束后通道自动关闭。
func (r *RedisLiveRepository) SubscribeRoom(ctx context.Context, roomID uint) (<-chan []byte, func(), error) {
	channel := r.RoomEventChannel(roomID)
	pubsub := r.client.Subscribe(ctx, channel)

	// 确认订阅建立，失败时及时返回错误而不是静默丢事件
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: failed to subscribe to channel %s: %w", channel, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			default:
				logrus.WithFields(logrus.Fields{"channel": channel, "room_id": roomID}).
					Warn("redis: subscriber channel full, dropping event")
			}
		}
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			logrus.WithError(err).WithField("channel", channel).Warn("redis: failed to close pubsub")
		}
	}
	return out, cancel, nil
}

// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
func (r *RedisLiveRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	// 使用 Pipeline 减少网络往返
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}
