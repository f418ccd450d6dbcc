package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNotificationStateSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	state := NewNotificationState(newClient(mr), time.Hour)

	if ok, err := state.IsAnnounced(ctx, 5); err != nil || ok {
		t.Fatalf("expected fresh state, ok=%v err=%v", ok, err)
	}

	if err := state.MarkDelivered(ctx, 5, 42); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if ok, err := state.IsDelivered(ctx, 5, 42); err != nil || !ok {
		t.Fatalf("expected delivery recorded, ok=%v err=%v", ok, err)
	}
	if ok, _ := state.IsDelivered(ctx, 5, 43); ok {
		t.Fatalf("unexpected delivery for other user")
	}

	if err := state.MarkAnnounced(ctx, 5); err != nil {
		t.Fatalf("mark announced: %v", err)
	}
	if ok, err := state.IsAnnounced(ctx, 5); err != nil || !ok {
		t.Fatalf("expected announced, ok=%v err=%v", ok, err)
	}
	if mr.Exists("mock:5:delivered") {
		t.Fatalf("expected delivery log removed once announced")
	}
	if ttl := mr.TTL("mock:5:announced"); ttl != time.Hour {
		t.Fatalf("expected announced marker ttl 1h, got %s", ttl)
	}
}

func TestNotificationStateSharedAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	first := NewNotificationState(newClient(mr), 0)
	second := NewNotificationState(newClient(mr), 0)

	if err := first.MarkAnnounced(ctx, 9); err != nil {
		t.Fatalf("mark announced: %v", err)
	}
	if ok, _ := second.IsAnnounced(ctx, 9); !ok {
		t.Fatalf("expected marker visible to another instance")
	}
}
