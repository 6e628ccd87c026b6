package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/cache"
	"github.com/ElVatoEste/biblioteca-reservas/internal/calendar"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
)

// Publisher is satisfied by the RabbitMQ publisher.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

type ReservationService interface {
	CheckAvailability(ctx context.Context, candidate *models.Reservation) (map[string]string, error)
	Create(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error)
	Update(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error)
	Delete(ctx context.Context, id int64) error
	SetAttendance(ctx context.Context, id int64, status models.AttendanceStatus) (*models.Reservation, error)
	ListRange(ctx context.Context, q repository.RangeQuery) (*repository.Page, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	checker   AvailabilityChecker
	ids       *IDGenerator
	pages     cache.PageCache
	publisher Publisher
	clock     Clock
}

// NewReservationService wires the lifecycle manager. pages and publisher
// may be nil.
func NewReservationService(
	repo repository.ReservationRepository,
	checker AvailabilityChecker,
	ids *IDGenerator,
	pages cache.PageCache,
	publisher Publisher,
) ReservationService {
	return &reservationService{
		repo:      repo,
		checker:   checker,
		ids:       ids,
		pages:     pages,
		publisher: publisher,
		clock:     RealClock{},
	}
}

func candidateErrors(c *models.Reservation) map[string]string {
	fields := map[string]string{}
	if !c.EndAt.After(c.StartAt) {
		fields[FieldEndAt] = "end must be after start"
	}
	if c.PartySize < 1 {
		fields[FieldPartySize] = "party size must be at least 1"
	}
	return fields
}

func normalize(c *models.Reservation) {
	c.StartAt = calendar.Instant(c.StartAt)
	c.EndAt = calendar.Instant(c.EndAt)
}

func (s *reservationService) CheckAvailability(ctx context.Context, candidate *models.Reservation) (map[string]string, error) {
	normalize(candidate)
	if fields := candidateErrors(candidate); len(fields) > 0 {
		return fields, nil
	}
	return s.checker.Check(ctx, candidate)
}

// validate runs the structural checks and then the availability checker.
func (s *reservationService) validate(ctx context.Context, candidate *models.Reservation) error {
	fields, err := s.CheckAvailability(ctx, candidate)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *reservationService) Create(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error) {
	// a new reservation never excludes anything from the overlap sum
	candidate.ReservationID = 0
	if err := s.validate(ctx, candidate); err != nil {
		return nil, err
	}

	candidate.DocKey = ""
	candidate.ReservationID = s.ids.Next()
	candidate.Attendance = models.AttendancePending
	if err := s.repo.Create(ctx, candidate); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.refresh(ctx, models.ActionCreated, candidate.ReservationID)
	return candidate, nil
}

func (s *reservationService) Update(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error) {
	if candidate.ReservationID == 0 {
		return nil, ErrMissingID
	}
	if err := s.validate(ctx, candidate); err != nil {
		return nil, err
	}

	matches, err := s.repo.FindByReservationID(ctx, candidate.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("find reservation %d: %w", candidate.ReservationID, err)
	}
	if len(matches) == 0 {
		return nil, ErrReservationNotFound
	}
	if len(matches) > 1 {
		log.Printf("[ReservationService] %d records share id %d, updating %s", len(matches), candidate.ReservationID, matches[0].DocKey)
	}

	stored := matches[0]
	candidate.DocKey = stored.DocKey
	candidate.CreatedAt = stored.CreatedAt
	if candidate.Attendance == "" {
		candidate.Attendance = stored.Attendance
	}
	if err := s.repo.Update(ctx, candidate); err != nil {
		return nil, fmt.Errorf("update reservation %d: %w", candidate.ReservationID, err)
	}

	s.refresh(ctx, models.ActionUpdated, candidate.ReservationID)
	return candidate, nil
}

// Delete removes every record carrying id. Deleting an id that no longer
// exists succeeds without side effects.
func (s *reservationService) Delete(ctx context.Context, id int64) error {
	matches, err := s.repo.FindByReservationID(ctx, id)
	if err != nil {
		return fmt.Errorf("find reservation %d: %w", id, err)
	}
	if len(matches) == 0 {
		return nil
	}

	for _, r := range matches {
		if err := s.repo.Delete(ctx, r.DocKey); err != nil {
			return fmt.Errorf("delete reservation %d: %w", id, err)
		}
	}

	s.refresh(ctx, models.ActionDeleted, id)
	return nil
}

func (s *reservationService) SetAttendance(ctx context.Context, id int64, status models.AttendanceStatus) (*models.Reservation, error) {
	matches, err := s.repo.FindByReservationID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find reservation %d: %w", id, err)
	}
	if len(matches) == 0 {
		return nil, ErrReservationNotFound
	}

	stored := matches[0]
	changed, err := transitionAttendance(ctx, id, stored.Attendance, status)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &stored, nil
	}

	if err := s.repo.UpdateAttendance(ctx, stored.DocKey, status); err != nil {
		return nil, fmt.Errorf("set attendance %d: %w", id, err)
	}
	stored.Attendance = status

	s.refresh(ctx, models.ActionAttendance, id)
	return &stored, nil
}

func pageKey(q repository.RangeQuery) string {
	cursor := ""
	if q.After != nil {
		cursor = q.After.Encode()
	}
	return cache.Key(
		q.Start.UTC().Format(time.RFC3339),
		q.End.UTC().Format(time.RFC3339),
		strconv.Itoa(q.PageSize),
		cursor,
	)
}

func (s *reservationService) ListRange(ctx context.Context, q repository.RangeQuery) (*repository.Page, error) {
	key := pageKey(q)
	var gen int64
	if s.pages != nil {
		b, g, ok := s.pages.Get(ctx, key)
		gen = g
		if ok {
			var page repository.Page
			if err := json.Unmarshal(b, &page); err == nil {
				return &page, nil
			}
		}
	}

	page, err := s.repo.QueryRange(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}

	if s.pages != nil {
		if b, err := json.Marshal(page); err == nil {
			// dropped if a write invalidated the cache during the query
			s.pages.Set(ctx, gen, key, b)
		}
	}
	return page, nil
}

// refresh runs after a committed mutation. Failures here are logged only;
// the write already happened.
func (s *reservationService) refresh(ctx context.Context, action string, id int64) {
	if s.pages != nil {
		s.pages.Invalidate(ctx)
	}
	if s.publisher == nil {
		return
	}
	event := models.ReservationEvent{Action: action, ReservationID: id, OccurredAt: s.clock.Now().UTC()}
	if err := s.publisher.Publish(event.RoutingKey(), event); err != nil {
		log.Printf("[ReservationService] publish %s: %v", event.RoutingKey(), err)
	}
}
