package realtime

import (
	"github.com/andikasp/mejaqr/models"
)

// PublishOrderChange -> siarkan perubahan order ke topic sesi
// (device pemesan + device lain di meja yang sama) dan topic venue
// (console staff).
func PublishOrderChange(kind string, order models.Order, venueID uint) {
	ev := Event{
		Kind:    kind,
		Entity:  EntityOrder,
		Payload: order,
	}
	Publish(SessionTopic(order.SessionID), ev)
	Publish(VenueTopic(venueID), ev)
}

// PublishSessionChange -> siarkan perubahan sesi ke kedua scope
func PublishSessionChange(kind string, session models.Session, venueID uint) {
	ev := Event{
		Kind:    kind,
		Entity:  EntitySession,
		Payload: session,
	}
	Publish(SessionTopic(session.ID), ev)
	Publish(VenueTopic(venueID), ev)
}
