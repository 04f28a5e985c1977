package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const enrollmentCompletedChannel = "okulab:enrollment:completed"

// EnrollmentRecord identifies one enrollment inside a completed transaction.
type EnrollmentRecord struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	StudentID    uuid.UUID `json:"student_id"`
	ClassID      uuid.UUID `json:"class_id"`
	CourseID     uuid.UUID `json:"course_id"`
}

// EnrollmentCompleted is emitted once per committed enrollment transaction.
type EnrollmentCompleted struct {
	AccountID   uuid.UUID          `json:"account_id"`
	Enrollments []EnrollmentRecord `json:"enrollments"`
	TotalCents  int64              `json:"total_cents"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// RedisPublisher publishes domain events on Redis pub/sub channels.
// A nil client turns every publish into a no-op so deployments without
// Redis keep working.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a Redis-backed event publisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishEnrollmentCompleted(ctx context.Context, event EnrollmentCompleted) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode enrollment event: %w", err)
	}

	return p.client.Publish(ctx, enrollmentCompletedChannel, payload).Err()
}
