package realtime

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Change kinds
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Entity kinds
const (
	EntitySession = "session"
	EntityOrder   = "order"
	EntityTable   = "table"
)

// Event -> satu perubahan state yang disiarkan ke subscriber.
// EmittedAt dipakai client untuk menolak event yang datang out-of-order
// (delivery at-least-once tanpa jaminan urutan antar topic).
type Event struct {
	Kind      string      `json:"kind"`
	Entity    string      `json:"entity"`
	EmittedAt time.Time   `json:"emitted_at"`
	Payload   interface{} `json:"payload"`
}

// Subscription -> satu pendengar pada satu topic. Terima event lewat C.
type Subscription struct {
	id    string
	topic string
	C     chan Event

	hub  *Hub
	once sync.Once
}

// Topic -> topic yang didengarkan subscription ini
func (s *Subscription) Topic() string {
	return s.topic
}

// Close melepaskan subscription dari hub. Aman dipanggil berulang kali.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.detach(s)
		close(s.C)
	})
}

// Hub menampung semua subscriber per topic dan menyiarkan event.
// Tidak ada replay log: subscriber yang terputus wajib re-fetch state
// penuh saat reconnect, bukan mengandalkan backfill dari hub.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscription

	// subscriber lambat tidak boleh memblokir publisher; event yang
	// tidak muat di buffer dibuang dan dihitung di sini
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[string]*Subscription),
	}
}

const subscriberBuffer = 32

// Subscribe -> daftarkan pendengar baru untuk sebuah topic
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		id:    uuid.NewString(),
		topic: topic,
		C:     make(chan Event, subscriberBuffer),
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*Subscription)
	}
	h.topics[topic][sub.id] = sub
	return sub
}

// Publish mengirim event ke semua subscriber topic tersebut.
// Dipanggil setelah mutasi commit, tidak pernah sebelumnya. Pengiriman
// non-blocking: buffer penuh berarti event di-drop dan client harus
// re-fetch (degradasi yang disengaja, bukan antrian tak terbatas).
func (h *Hub) Publish(topic string, ev Event) {
	if ev.EmittedAt.IsZero() {
		ev.EmittedAt = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.topics[topic] {
		select {
		case sub.C <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped -> total event yang dibuang karena buffer subscriber penuh
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// SubscriberCount -> jumlah pendengar aktif pada satu topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) detach(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.topics[s.topic]
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(h.topics, s.topic)
	}
}

// SessionTopic -> topic per sesi, scope tamu di satu meja
func SessionTopic(sessionID uint) string {
	return fmt.Sprintf("session:%d", sessionID)
}

// VenueTopic -> topic per venue, scope console staff (semua meja)
func VenueTopic(venueID uint) string {
	return fmt.Sprintf("venue:%d", venueID)
}

// Hub default bergaya singleton seperti koneksi DB
var defaultHub = NewHub()

func Subscribe(topic string) *Subscription {
	return defaultHub.Subscribe(topic)
}

func Publish(topic string, ev Event) {
	defaultHub.Publish(topic, ev)
}

func Default() *Hub {
	return defaultHub
}
