package dto

import (
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/calendar"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
)

// ReservationRequest is the reservation form. Times accept RFC 3339 or the
// datetime-local format, read in the library's time zone.
type ReservationRequest struct {
	StudentName string `json:"studentName" validate:"required,max=120"`
	CIF         string `json:"cif" validate:"required,max=40"`
	Email       string `json:"email" validate:"required,email,max=160"`
	Subject     string `json:"subject" validate:"required,max=200"`
	PartySize   int    `json:"partySize" validate:"required,gte=1"`
	StartAt     string `json:"startAt" validate:"required"`
	EndAt       string `json:"endAt" validate:"required"`
	Whiteboard  bool   `json:"whiteboard"`
	Projector   bool   `json:"projector"`
	Computer    bool   `json:"computer"`
	Attendance  string `json:"attendance"`
}

// ToModel converts the form into a candidate. Unparseable values come back
// as field messages keyed like the JSON fields.
func (r *ReservationRequest) ToModel(loc *time.Location) (*models.Reservation, map[string]string) {
	fields := map[string]string{}

	start, err := calendar.Parse(r.StartAt, loc)
	if err != nil {
		fields["startAt"] = "invalid date/time"
	}
	end, err := calendar.Parse(r.EndAt, loc)
	if err != nil {
		fields["endAt"] = "invalid date/time"
	}

	var attendance models.AttendanceStatus
	if r.Attendance != "" {
		attendance, err = models.ParseAttendance(r.Attendance)
		if err != nil {
			fields["attendance"] = "unknown attendance status"
		}
	}

	if len(fields) > 0 {
		return nil, fields
	}
	return &models.Reservation{
		StudentName: r.StudentName,
		CIF:         r.CIF,
		Email:       r.Email,
		Subject:     r.Subject,
		PartySize:   r.PartySize,
		StartAt:     start,
		EndAt:       end,
		Whiteboard:  r.Whiteboard,
		Projector:   r.Projector,
		Computer:    r.Computer,
		Attendance:  attendance,
	}, nil
}

type AttendanceRequest struct {
	Status string `json:"status" validate:"required"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProviderSignInRequest struct {
	Assertion string `json:"assertion" validate:"required"`
}

type LinkPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type AllowedEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}
