package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMalformedReservation = errors.New("malformed reservation record")

type AttendanceStatus string

const (
	AttendancePending     AttendanceStatus = "PENDING"
	AttendanceAttended    AttendanceStatus = "ATTENDED"
	AttendanceNotAttended AttendanceStatus = "NOT_ATTENDED"
)

// ParseAttendance accepts the canonical values plus the legacy Spanish ones
// still present in older records. An empty value means PENDING.
func ParseAttendance(s string) (AttendanceStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "PENDING", "PENDIENTE":
		return AttendancePending, nil
	case "ATTENDED", "ASISTENCIA":
		return AttendanceAttended, nil
	case "NOT_ATTENDED", "INASISTENCIA":
		return AttendanceNotAttended, nil
	}
	return "", fmt.Errorf("unknown attendance status %q", s)
}

type Reservation struct {
	DocKey        string           `gorm:"primaryKey;type:varchar(36);index:idx_reservations_start_key,priority:2" json:"docKey"`
	ReservationID int64            `gorm:"not null;index" json:"id"`
	StudentName   string           `gorm:"type:varchar(120);not null" json:"studentName"`
	CIF           string           `gorm:"column:cif;type:varchar(40);not null" json:"cif"`
	Email         string           `gorm:"type:varchar(160);not null" json:"email"`
	Subject       string           `gorm:"type:varchar(200);not null" json:"subject"`
	PartySize     int              `gorm:"not null" json:"partySize"`
	StartAt       time.Time        `gorm:"not null;index:idx_reservations_start_key,priority:1" json:"startAt"`
	EndAt         time.Time        `gorm:"not null" json:"endAt"`
	Whiteboard    bool             `gorm:"not null;default:false" json:"whiteboard"`
	Projector     bool             `gorm:"not null;default:false" json:"projector"`
	Computer      bool             `gorm:"not null;default:false" json:"computer"`
	Attendance    AttendanceStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"attendance"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Overlaps reports whether the half-open intervals [StartAt, EndAt) intersect.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartAt.Before(end) && start.Before(r.EndAt)
}

// Extras lists the requested equipment for display.
func (r *Reservation) Extras() string {
	var parts []string
	if r.Whiteboard {
		parts = append(parts, "Whiteboard")
	}
	if r.Projector {
		parts = append(parts, "Projector")
	}
	if r.Computer {
		parts = append(parts, "Computer")
	}
	return strings.Join(parts, ", ")
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.DocKey == "" {
		r.DocKey = uuid.NewString()
	}
	return nil
}

func (r *Reservation) BeforeSave(tx *gorm.DB) error {
	r.StartAt = r.StartAt.UTC()
	r.EndAt = r.EndAt.UTC()
	return nil
}

// AfterFind rejects records missing required fields instead of handing
// zero values to the availability checker.
func (r *Reservation) AfterFind(tx *gorm.DB) error {
	switch {
	case r.DocKey == "":
		return fmt.Errorf("%w: missing document key", ErrMalformedReservation)
	case r.ReservationID == 0:
		return fmt.Errorf("%w: %s has no reservation id", ErrMalformedReservation, r.DocKey)
	case r.StartAt.IsZero() || r.EndAt.IsZero():
		return fmt.Errorf("%w: %s has no schedule", ErrMalformedReservation, r.DocKey)
	case r.PartySize < 1:
		return fmt.Errorf("%w: %s has party size %d", ErrMalformedReservation, r.DocKey, r.PartySize)
	}

	status, err := ParseAttendance(string(r.Attendance))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedReservation, r.DocKey, err)
	}
	r.Attendance = status
	r.StartAt = r.StartAt.UTC()
	r.EndAt = r.EndAt.UTC()
	return nil
}
