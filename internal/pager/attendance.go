package pager

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/calendar"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
)

const DefaultAttendancePageSize = 10

// Attendance accumulates a month of reservations page by page.
type Attendance struct {
	src      Source
	pageSize int
	loc      *time.Location

	mu     sync.Mutex
	start  time.Time
	end    time.Time
	items  []models.Reservation
	next   *repository.Cursor
	loaded bool
	gen    uint64
}

func NewAttendance(src Source, pageSize int, loc *time.Location) *Attendance {
	if pageSize <= 0 {
		pageSize = DefaultAttendancePageSize
	}
	return &Attendance{src: src, pageSize: pageSize, loc: loc}
}

// SetMonth drops everything loaded so far and loads the first page of the month.
func (a *Attendance) SetMonth(ctx context.Context, year int, month time.Month) error {
	start, end := calendar.MonthRange(year, month, a.loc)

	a.mu.Lock()
	a.start, a.end = start, end
	a.items, a.next, a.loaded = nil, nil, false
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	return a.fetch(ctx, gen, nil)
}

// LoadMore appends the next page. It is a no-op once the month is exhausted.
func (a *Attendance) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	if !a.loaded || a.next == nil {
		a.mu.Unlock()
		return nil
	}
	a.gen++
	gen := a.gen
	cursor := a.next
	a.mu.Unlock()

	return a.fetch(ctx, gen, cursor)
}

func (a *Attendance) fetch(ctx context.Context, gen uint64, after *repository.Cursor) error {
	a.mu.Lock()
	q := repository.RangeQuery{Start: a.start, End: a.end, PageSize: a.pageSize, After: after}
	a.mu.Unlock()

	page, err := a.src.ListRange(ctx, q)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return nil
	}
	a.items = append(a.items, page.Items...)
	a.next = page.Next
	a.loaded = true
	return nil
}

// UpdateLocal replaces the loaded copy of a reservation after a successful
// change, without reloading.
func (a *Attendance) UpdateLocal(updated models.Reservation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.items {
		if a.items[i].ReservationID == updated.ReservationID {
			a.items[i] = updated
		}
	}
}

func (a *Attendance) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded && a.next != nil
}

func (a *Attendance) Items() []models.Reservation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Reservation(nil), a.items...)
}

// Filter narrows the loaded rows by a case-insensitive name or email search
// and, when status is set, by attendance.
func (a *Attendance) Filter(term string, status models.AttendanceStatus) []models.Reservation {
	term = strings.ToLower(strings.TrimSpace(term))

	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.Reservation
	for _, r := range a.items {
		if status != "" && r.Attendance != status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(r.StudentName), term) &&
			!strings.Contains(strings.ToLower(r.Email), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}
