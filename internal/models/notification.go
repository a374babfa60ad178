package models

import "time"

// Notification is a durable per-recipient message. Rows are write-once except
// for the is_read flip; the live push is only a latency optimisation.
type Notification struct {
	ID          string    `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	Title       string    `db:"title" json:"title"`
	Message     string    `db:"message" json:"message"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
