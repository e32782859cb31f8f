package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishReachesSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var created, updated []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		created = append(created, e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketUpdated, func(_ context.Context, e Event) error {
		updated = append(updated, e.TicketID)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "a"}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketUpdated, TicketID: "b"}))

	assert.Equal(t, []string{"a"}, created)
	assert.Equal(t, []string{"b"}, updated)
}

func TestDispatcher_FailingHandlerDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	calls := 0
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
