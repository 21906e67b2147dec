package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SubscribeAndSend(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("demo-shop")
	defer cancel()

	hub.Send("demo-shop", Event{Type: EventSyncStarted, Total: 3})
	hub.Send("other-shop", Event{Type: EventSyncStarted, Total: 99})

	select {
	case ev := <-ch:
		assert.Equal(t, EventSyncStarted, ev.Type)
		assert.Equal(t, 3, ev.Total)
	default:
		t.Fatal("expected a buffered event")
	}

	// Nothing from the other shop must arrive.
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("demo-shop")
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Sending after cancel must not panic.
	hub.Send("demo-shop", Event{Type: EventProcessing})
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("demo-shop")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Send("demo-shop", Event{Type: EventProcessing, Processed: i})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, count)
}

func TestMulti_FansOut(t *testing.T) {
	hub1 := NewHub()
	hub2 := NewHub()
	ch1, cancel1 := hub1.Subscribe("s")
	defer cancel1()
	ch2, cancel2 := hub2.Subscribe("s")
	defer cancel2()

	Multi{hub1, hub2}.Send("s", Event{Type: EventCreated})

	assert.Len(t, ch1, 1)
	assert.Len(t, ch2, 1)
}
