package service

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator issues reservation ids from the clock's Unix milliseconds.
// Within one process ids strictly increase even when the clock stalls or
// steps back.
type IDGenerator struct {
	clock Clock
	mu    sync.Mutex
	last  int64
}

func NewIDGenerator(clock Clock) *IDGenerator {
	if clock == nil {
		clock = RealClock{}
	}
	return &IDGenerator{clock: clock}
}

func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.clock.Now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
