package auth

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"
)

// Session is the signed-in identity passed explicitly to every operation
// that needs one.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Providers []string  `json:"providers"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Session) HasRole(role string) bool {
	return s != nil && slices.Contains(s.Roles, role)
}

func (s *Session) HasProvider(provider string) bool {
	return s != nil && slices.Contains(s.Providers, provider)
}

// RefreshFunc exchanges a session for one with a fresh token.
type RefreshFunc func(ctx context.Context, current *Session) (*Session, error)

// Keeper owns the current session of a long-lived client: it refreshes the
// token on an interval and tells subscribers about every change. A nil
// session delivered to subscribers means signed out.
type Keeper struct {
	refresh  RefreshFunc
	interval time.Duration

	mu          sync.Mutex
	current     *Session
	subscribers map[int]func(*Session)
	nextID      int
	cancel      context.CancelFunc
	done        chan struct{}
}

// DefaultRefreshEvery is used when NewKeeper gets a non-positive interval.
const DefaultRefreshEvery = 10 * time.Minute

func NewKeeper(refresh RefreshFunc, interval time.Duration) *Keeper {
	if interval <= 0 {
		log.Printf("[Session] refresh interval %s not positive, using %s", interval, DefaultRefreshEvery)
		interval = DefaultRefreshEvery
	}
	return &Keeper{
		refresh:     refresh,
		interval:    interval,
		subscribers: map[int]func(*Session){},
	}
}

func (k *Keeper) Current() *Session {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Subscribe registers fn for session changes and returns its removal func.
func (k *Keeper) Subscribe(fn func(*Session)) func() {
	k.mu.Lock()
	defer k.mu.Unlock()
	id := k.nextID
	k.nextID++
	k.subscribers[id] = fn
	return func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		delete(k.subscribers, id)
	}
}

// Start installs session and begins periodic refresh. Starting again
// replaces the previous session and refresh loop.
func (k *Keeper) Start(ctx context.Context, session *Session) {
	k.stopLoop()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	k.mu.Lock()
	k.cancel = cancel
	k.done = done
	k.mu.Unlock()

	k.set(session)
	go k.loop(loopCtx, done)
}

func (k *Keeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := k.Current()
			if current == nil {
				continue
			}
			next, err := k.refresh(ctx, current)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[SessionKeeper] refresh for %s: %v", current.Email, err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			k.set(next)
		}
	}
}

// Stop ends the refresh loop, clears the session and notifies subscribers.
func (k *Keeper) Stop() {
	k.stopLoop()
	if k.Current() != nil {
		k.set(nil)
	}
}

func (k *Keeper) stopLoop() {
	k.mu.Lock()
	cancel, done := k.cancel, k.done
	k.cancel, k.done = nil, nil
	k.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (k *Keeper) set(session *Session) {
	k.mu.Lock()
	k.current = session
	subs := make([]func(*Session), 0, len(k.subscribers))
	for _, fn := range k.subscribers {
		subs = append(subs, fn)
	}
	k.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}
