package memory

import (
	"context"
	"sync"
)

// NotificationState is a process-local app.NotificationState. It is lost on restart.
type NotificationState struct {
	mu        sync.RWMutex
	announced map[int64]struct{}
	delivered map[int64]map[int64]struct{}
}

func NewNotificationState() *NotificationState {
	return &NotificationState{
		announced: make(map[int64]struct{}),
		delivered: make(map[int64]map[int64]struct{}),
	}
}

func (s *NotificationState) IsAnnounced(_ context.Context, testID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.announced[testID]
	return ok, nil
}

// MarkAnnounced records the test and forgets its per-recipient deliveries.
func (s *NotificationState) MarkAnnounced(_ context.Context, testID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announced[testID] = struct{}{}
	delete(s.delivered, testID)
	return nil
}

func (s *NotificationState) IsDelivered(_ context.Context, testID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.delivered[testID][userID]
	return ok, nil
}

func (s *NotificationState) MarkDelivered(_ context.Context, testID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, ok := s.delivered[testID]
	if !ok {
		users = make(map[int64]struct{})
		s.delivered[testID] = users
	}
	users[userID] = struct{}{}
	return nil
}
