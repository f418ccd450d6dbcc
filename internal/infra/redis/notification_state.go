package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// NotificationState is a Redis-backed app.NotificationState.
// Unlike the in-memory one it survives restarts and is shared by every
// process pointing at the same Redis, so an announcement is not repeated
// after a redeploy inside the closing window.
//
//	mock:{testID}:announced            string marker
//	mock:{testID}:delivered            set of user ids
type NotificationState struct {
	client *redis.Client
	ttl    time.Duration
}

// NewNotificationState keeps markers for ttl (zero keeps them forever).
func NewNotificationState(client *redis.Client, ttl time.Duration) *NotificationState {
	return &NotificationState{client: client, ttl: ttl}
}

func (s *NotificationState) IsAnnounced(ctx context.Context, testID int64) (bool, error) {
	_, err := s.client.Get(ctx, s.announcedKey(testID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *NotificationState) MarkAnnounced(ctx context.Context, testID int64) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.announcedKey(testID), "1", s.ttl)
		pipe.Del(ctx, s.deliveredKey(testID))
		return nil
	})
	return err
}

func (s *NotificationState) IsDelivered(ctx context.Context, testID, userID int64) (bool, error) {
	return s.client.SIsMember(ctx, s.deliveredKey(testID), strconv.FormatInt(userID, 10)).Result()
}

func (s *NotificationState) MarkDelivered(ctx context.Context, testID, userID int64) error {
	key := s.deliveredKey(testID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, strconv.FormatInt(userID, 10))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

func (s *NotificationState) announcedKey(testID int64) string {
	return "mock:" + strconv.FormatInt(testID, 10) + ":announced"
}

func (s *NotificationState) deliveredKey(testID int64) string {
	return "mock:" + strconv.FormatInt(testID, 10) + ":delivered"
}
