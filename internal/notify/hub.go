package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// Hub fans notifications out to in-process subscribers. Delivery is
// best-effort; slow consumers are skipped because the persisted notification
// row is the durable source of truth.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan models.Notification]struct{}
	bufferSize  int
	logger      *zap.Logger
}

// NewHub builds a hub with the given per-subscriber channel buffer.
func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[string]map[chan models.Notification]struct{}),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe registers a listener for a recipient's notifications. The
// returned cancel func is idempotent and safe to call multiple times.
func (h *Hub) Subscribe(recipientID string) (<-chan models.Notification, func()) {
	ch := make(chan models.Notification, h.bufferSize)

	h.mu.Lock()
	set, ok := h.subscribers[recipientID]
	if !ok {
		set = make(map[chan models.Notification]struct{})
		h.subscribers[recipientID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subscribers[recipientID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subscribers, recipientID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish pushes a notification to every live subscriber of its recipient.
// A full subscriber buffer drops the push; the row remains retrievable.
func (h *Hub) Publish(n models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[n.RecipientID] {
		select {
		case ch <- n:
		default:
			h.logger.Warn("notification push dropped",
				zap.String("notification_id", n.ID),
				zap.String("recipient_id", n.RecipientID),
			)
		}
	}
}

// SubscriberCount returns the number of live channels for a recipient.
func (h *Hub) SubscriberCount(recipientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[recipientID])
}
