package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscribePublish(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("session:1")
	defer sub.Close()

	hub.Publish("session:1", Event{
		Kind:    KindCreated,
		Entity:  EntityOrder,
		Payload: "order-1",
	})

	select {
	case ev := <-sub.C:
		assert.Equal(t, KindCreated, ev.Kind)
		assert.Equal(t, EntityOrder, ev.Entity)
		assert.Equal(t, "order-1", ev.Payload)
		// EmittedAt diisi hub saat publish
		assert.False(t, ev.EmittedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestFanOutToAllSubscribers(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("session:1")
	b := hub.Subscribe("session:1")
	defer a.Close()
	defer b.Close()

	hub.Publish("session:1", Event{Kind: KindUpdated, Entity: EntitySession})

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, KindUpdated, ev.Kind)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed event")
		}
	}
}

func TestTopicIsolation(t *testing.T) {
	hub := NewHub()
	session := hub.Subscribe("session:1")
	other := hub.Subscribe("session:2")
	defer session.Close()
	defer other.Close()

	hub.Publish("session:1", Event{Kind: KindCreated, Entity: EntityOrder})

	assert.Len(t, session.C, 1)
	assert.Len(t, other.C, 0)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("venue:1")

	sub.Close()
	// Close kedua tidak boleh panic atau double-release
	sub.Close()

	assert.Equal(t, 0, hub.SubscriberCount("venue:1"))

	// Publish setelah semua subscriber pergi tetap aman
	hub.Publish("venue:1", Event{Kind: KindDeleted, Entity: EntityOrder})
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("session:1")
	defer sub.Close()

	// Publisher tidak boleh terblokir meski buffer subscriber penuh;
	// event yang tidak muat di-drop dan client wajib re-fetch
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish("session:1", Event{Kind: KindUpdated, Entity: EntityOrder})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked by slow subscriber")
	}

	assert.Equal(t, subscriberBuffer, len(sub.C))
	assert.Equal(t, uint64(subscriberBuffer*2), hub.Dropped())
}

func TestTopicHelpers(t *testing.T) {
	assert.Equal(t, "session:42", SessionTopic(42))
	assert.Equal(t, "venue:7", VenueTopic(7))
}

func TestSubscriberCountTracksDetach(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("venue:9")
	b := hub.Subscribe("venue:9")
	assert.Equal(t, 2, hub.SubscriberCount("venue:9"))

	a.Close()
	assert.Equal(t, 1, hub.SubscriberCount("venue:9"))
	b.Close()
	assert.Equal(t, 0, hub.SubscriberCount("venue:9"))
}
