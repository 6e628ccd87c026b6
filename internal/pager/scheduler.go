// Package pager keeps the client-side view state over paginated range
// queries. Each view tags its requests with a generation number and drops
// any result that arrives after the view moved on.
package pager

import (
	"context"
	"sync"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
)

// Source is anything that answers range queries: the reservation service
// in-process or the HTTP client remotely.
type Source interface {
	ListRange(ctx context.Context, q repository.RangeQuery) (*repository.Page, error)
}

// Scheduler shows one page at a time and can step forward and back.
type Scheduler struct {
	src      Source
	pageSize int

	mu    sync.Mutex
	start time.Time
	end   time.Time
	// cursors used to load each visited page; the first is always nil
	stack []*repository.Cursor
	items []models.Reservation
	next  *repository.Cursor
	gen   uint64
}

func NewScheduler(src Source, pageSize int) *Scheduler {
	return &Scheduler{src: src, pageSize: pageSize}
}

// SetRange discards all cursor state and loads the first page of [start, end).
func (s *Scheduler) SetRange(ctx context.Context, start, end time.Time) error {
	s.mu.Lock()
	s.start, s.end = start, end
	s.stack, s.items, s.next = nil, nil, nil
	s.mu.Unlock()
	return s.Reload(ctx)
}

// Reload starts over from the first page of the current range.
func (s *Scheduler) Reload(ctx context.Context) error {
	return s.load(ctx, func(stack []*repository.Cursor) ([]*repository.Cursor, *repository.Cursor, bool) {
		return []*repository.Cursor{nil}, nil, true
	})
}

func (s *Scheduler) Next(ctx context.Context) error {
	return s.load(ctx, func(stack []*repository.Cursor) ([]*repository.Cursor, *repository.Cursor, bool) {
		if s.next == nil {
			return nil, nil, false
		}
		return append(stack, s.next), s.next, true
	})
}

func (s *Scheduler) Prev(ctx context.Context) error {
	return s.load(ctx, func(stack []*repository.Cursor) ([]*repository.Cursor, *repository.Cursor, bool) {
		if len(stack) < 2 {
			return nil, nil, false
		}
		popped := stack[:len(stack)-1]
		return popped, popped[len(popped)-1], true
	})
}

// load computes the target page under the lock, fetches without it, and
// commits only if no newer request started meanwhile.
func (s *Scheduler) load(ctx context.Context, target func([]*repository.Cursor) ([]*repository.Cursor, *repository.Cursor, bool)) error {
	s.mu.Lock()
	current := append([]*repository.Cursor(nil), s.stack...)
	stack, cursor, ok := target(current)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	q := repository.RangeQuery{Start: s.start, End: s.end, PageSize: s.pageSize, After: cursor}
	s.mu.Unlock()

	page, err := s.src.ListRange(ctx, q)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.stack = stack
	s.items = page.Items
	s.next = page.Next
	return nil
}

func (s *Scheduler) Items() []models.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Reservation(nil), s.items...)
}

func (s *Scheduler) HasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next != nil
}

func (s *Scheduler) HasPrev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack) > 1
}

// Page is the 1-based number of the page on screen, 0 before the first load.
func (s *Scheduler) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}
