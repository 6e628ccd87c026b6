package dto

import (
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
)

type ReservationResponse struct {
	ID          int64                   `json:"id"`
	StudentName string                  `json:"studentName"`
	CIF         string                  `json:"cif"`
	Email       string                  `json:"email"`
	Subject     string                  `json:"subject"`
	PartySize   int                     `json:"partySize"`
	StartAt     time.Time               `json:"startAt"`
	EndAt       time.Time               `json:"endAt"`
	Whiteboard  bool                    `json:"whiteboard"`
	Projector   bool                    `json:"projector"`
	Computer    bool                    `json:"computer"`
	Extras      string                  `json:"extras"`
	Attendance  models.AttendanceStatus `json:"attendance"`
}

type PageResponse struct {
	Items      []ReservationResponse `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

type AvailabilityResponse struct {
	Available bool              `json:"available"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type UserResponse struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	Providers []string `json:"providers"`
}

type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func ToReservationResponse(r *models.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ReservationID,
		StudentName: r.StudentName,
		CIF:         r.CIF,
		Email:       r.Email,
		Subject:     r.Subject,
		PartySize:   r.PartySize,
		StartAt:     r.StartAt.UTC(),
		EndAt:       r.EndAt.UTC(),
		Whiteboard:  r.Whiteboard,
		Projector:   r.Projector,
		Computer:    r.Computer,
		Extras:      r.Extras(),
		Attendance:  r.Attendance,
	}
}

func ToPageResponse(p *repository.Page) PageResponse {
	resp := PageResponse{Items: make([]ReservationResponse, len(p.Items))}
	for i := range p.Items {
		resp.Items[i] = ToReservationResponse(&p.Items[i])
	}
	if p.Next != nil {
		resp.NextCursor = p.Next.Encode()
	}
	return resp
}

func ToSessionResponse(s *auth.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User: UserResponse{
			ID:        s.UserID,
			Email:     s.Email,
			Roles:     s.Roles,
			Providers: s.Providers,
		},
	}
}

func ToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Roles:     u.Roles,
		Providers: u.Providers,
	}
}
