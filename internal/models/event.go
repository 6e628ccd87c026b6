package models

import "time"

const (
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionAttendance = "attendance"
)

// ReservationEvent is published after every committed mutation so other
// instances can drop their cached pages.
type ReservationEvent struct {
	Action        string    `json:"action"`
	ReservationID int64     `json:"reservation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e ReservationEvent) RoutingKey() string {
	return "reservation." + e.Action
}
