package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autoparts/catalog/internal/config"
	"autoparts/catalog/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const streamPrefix = "autoparts:stream:"

// Message field names.
const (
	fieldTaskType = "task_type"
	fieldTaskData = "task_data"
)

type Queue interface {
	AddTask(ctx context.Context, task task.Task) (string, error) // Returns message ID
	GetTask(ctx context.Context, consumer, taskType string) (*redis.XMessage, error)
	AckTask(ctx context.Context, taskType, msgID string) error
	AutoClaim(ctx context.Context, consumer, taskType string, minIdleTime time.Duration) ([]redis.XMessage, error)
	EnsureStreamsExist(ctx context.Context) error
}

type RedisQueue struct {
	redisClient *redis.Client
	groupName   string
	block       time.Duration
}

func NewRedisQueue(ctx context.Context, redisClient *redis.Client, cfg config.RedisConfig) (*RedisQueue, error) {
	q := &RedisQueue{
		redisClient: redisClient,
		groupName:   cfg.ConsumerGroup,
		block:       5 * time.Second,
	}

	// Ensure all streams and consumer groups exist before workers start
	if err := q.EnsureStreamsExist(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure streams exist: %w", err)
	}

	return q, nil
}

// StreamName returns the Redis stream carrying tasks of the given type.
func StreamName(taskType string) string {
	return streamPrefix + taskType
}

func (q *RedisQueue) createGroup(ctx context.Context, stream string) error {
	err := q.redisClient.XGroupCreateMkStream(ctx, stream, q.groupName, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Debugf("Group %s already exists for stream %s", q.groupName, stream)
		return nil
	}
	return err
}

func (q *RedisQueue) AddTask(ctx context.Context, t task.Task) (string, error) {
	taskType := t.TaskType()
	streamName := StreamName(taskType)

	taskValue, err := t.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			fieldTaskType: taskType,
			fieldTaskData: string(taskValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to Redis stream %s: %w", streamName, err)
	}

	log.Debugf("Added task %s to stream %s with message ID: %s", taskType, streamName, messageID)
	return messageID, nil
}

// GetTask blocks for a short while waiting for a new message. It returns nil
// when nothing arrived.
func (q *RedisQueue) GetTask(ctx context.Context, consumer, taskType string) (*redis.XMessage, error) {
	stream := StreamName(taskType)
	result, err := q.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.groupName,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    q.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from Redis stream %s: %w", stream, err)
	}

	if len(result) == 0 || len(result[0].Messages) == 0 {
		return nil, nil
	}

	return &result[0].Messages[0], nil
}

func (q *RedisQueue) AckTask(ctx context.Context, taskType, msgID string) error {
	return q.redisClient.XAck(ctx, StreamName(taskType), q.groupName, msgID).Err()
}

// AutoClaim takes over one message another consumer left pending for longer than minIdleTime.
func (q *RedisQueue) AutoClaim(ctx context.Context, consumer, taskType string, minIdleTime time.Duration) ([]redis.XMessage, error) {
	stream := StreamName(taskType)
	result, _, err := q.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    q.groupName,
		Consumer: consumer,
		MinIdle:  minIdleTime,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to claim messages from Redis stream %s: %w", stream, err)
	}

	return result, nil
}

// EnsureStreamsExist creates all task streams and the consumer group upfront
func (q *RedisQueue) EnsureStreamsExist(ctx context.Context) error {
	log.Info("🔧 Creating Redis streams and consumer groups...")

	for _, taskType := range task.Types {
		streamName := StreamName(taskType)
		if err := q.createGroup(ctx, streamName); err != nil {
			return fmt.Errorf("failed to create consumer group for %s: %w", taskType, err)
		}
		log.Infof("✅ Stream %s and consumer group %s ready", streamName, q.groupName)
	}

	return nil
}

// TaskData extracts the serialized task from a stream message.
func TaskData(msg redis.XMessage) ([]byte, error) {
	raw, ok := msg.Values[fieldTaskData]
	if !ok {
		return nil, fmt.Errorf("message %s has no %s field", msg.ID, fieldTaskData)
	}

	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("message %s has a non-string %s field", msg.ID, fieldTaskData)
	}
	return []byte(s), nil
}
