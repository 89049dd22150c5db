package models

import "time"

// ActivityEntry is one row of the internal admin activity feed. It is
// written whenever a notification event fires, independent of whether the
// email itself was delivered.
type ActivityEntry struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	ActorID   int64     `json:"actor_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}
