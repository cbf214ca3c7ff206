package auth

import (
	"testing"

	"github.com/hitoshi/kudos/internal/model"
)

func TestEventBus_PublishDeliversToAllListeners(t *testing.T) {
	bus := NewEventBus()

	var a, b []model.AuthEvent
	bus.Subscribe(func(e model.AuthEvent, _ *model.Session) { a = append(a, e) })
	bus.Subscribe(func(e model.AuthEvent, _ *model.Session) { b = append(b, e) })

	bus.Publish(model.AuthEventSignedIn, &model.Session{ID: "s-1"})

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("deliveries = %d, %d; want 1, 1", len(a), len(b))
	}
	if a[0] != model.AuthEventSignedIn {
		t.Errorf("event = %s, want SIGNED_IN", a[0])
	}
}

func TestEventBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewEventBus()

	var got int
	unsubscribe := bus.Subscribe(func(model.AuthEvent, *model.Session) { got++ })

	bus.Publish(model.AuthEventSignedIn, nil)
	unsubscribe()
	unsubscribe()
	bus.Publish(model.AuthEventSignedOut, nil)

	if got != 1 {
		t.Errorf("deliveries = %d, want 1", got)
	}
}
