package service

import (
	"context"
	"sync"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
)

// --- Mock ReservationRepository ---

type mockReservationRepo struct {
	createFn           func(ctx context.Context, r *models.Reservation) error
	queryRangeFn       func(ctx context.Context, q repository.RangeQuery) (*repository.Page, error)
	findBeforeFn       func(ctx context.Context, end time.Time) ([]models.Reservation, error)
	findByIDFn         func(ctx context.Context, id int64) ([]models.Reservation, error)
	updateFn           func(ctx context.Context, r *models.Reservation) error
	updateAttendanceFn func(ctx context.Context, docKey string, status models.AttendanceStatus) error
	deleteFn           func(ctx context.Context, docKey string) error
}

func (m *mockReservationRepo) Create(ctx context.Context, r *models.Reservation) error {
	return m.createFn(ctx, r)
}
func (m *mockReservationRepo) QueryRange(ctx context.Context, q repository.RangeQuery) (*repository.Page, error) {
	return m.queryRangeFn(ctx, q)
}
func (m *mockReservationRepo) FindStartingBefore(ctx context.Context, end time.Time) ([]models.Reservation, error) {
	return m.findBeforeFn(ctx, end)
}
func (m *mockReservationRepo) FindByReservationID(ctx context.Context, id int64) ([]models.Reservation, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockReservationRepo) Update(ctx context.Context, r *models.Reservation) error {
	return m.updateFn(ctx, r)
}
func (m *mockReservationRepo) UpdateAttendance(ctx context.Context, docKey string, status models.AttendanceStatus) error {
	return m.updateAttendanceFn(ctx, docKey, status)
}
func (m *mockReservationRepo) Delete(ctx context.Context, docKey string) error {
	return m.deleteFn(ctx, docKey)
}

// startingBefore serves FindStartingBefore from a fixed record set.
func startingBefore(records []models.Reservation, calls *int) func(context.Context, time.Time) ([]models.Reservation, error) {
	return func(_ context.Context, end time.Time) ([]models.Reservation, error) {
		if calls != nil {
			*calls++
		}
		var out []models.Reservation
		for _, r := range records {
			if r.StartAt.Before(end) {
				out = append(out, r)
			}
		}
		return out, nil
	}
}

// --- Mock AvailabilityChecker ---

type mockChecker struct {
	calls   int
	checkFn func(ctx context.Context, c *models.Reservation) (map[string]string, error)
}

func (m *mockChecker) Check(ctx context.Context, c *models.Reservation) (map[string]string, error) {
	m.calls++
	if m.checkFn == nil {
		return map[string]string{}, nil
	}
	return m.checkFn(ctx, c)
}

// --- Mock PageCache ---

type mockPageCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[string][]byte
	invalidated int
}

func newMockPageCache() *mockPageCache {
	return &mockPageCache{entries: map[string][]byte{}}
}

func (m *mockPageCache) Get(_ context.Context, key string) ([]byte, int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.entries[key]
	return b, m.gen, ok
}
func (m *mockPageCache) Set(_ context.Context, gen int64, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen {
		m.entries[key] = value
	}
}
func (m *mockPageCache) Invalidate(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string][]byte{}
	m.gen++
	m.invalidated++
}

// --- Mock Publisher ---

type publishedMessage struct {
	routingKey string
	payload    any
}

type mockPublisher struct {
	messages []publishedMessage
	err      error
}

func (m *mockPublisher) Publish(routingKey string, payload any) error {
	m.messages = append(m.messages, publishedMessage{routingKey, payload})
	return m.err
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
