package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_MonotonicUnderStalledClock(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	gen := NewIDGenerator(fixedClock{now})

	assert.Equal(t, now.UnixMilli(), gen.Next())
	assert.Equal(t, now.UnixMilli()+1, gen.Next())
	assert.Equal(t, now.UnixMilli()+2, gen.Next())
}

func TestIDGenerator_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	gen := NewIDGenerator(nil)
	const n = 200

	var mu sync.Mutex
	seen := make(map[int64]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestTransitionAttendance(t *testing.T) {
	ctx := context.Background()
	statuses := []models.AttendanceStatus{models.AttendancePending, models.AttendanceAttended, models.AttendanceNotAttended}

	for _, from := range statuses {
		for _, to := range statuses {
			changed, err := transitionAttendance(ctx, 1, from, to)
			require.NoError(t, err)
			assert.Equal(t, from != to, changed, "%s -> %s", from, to)
		}
	}

	_, err := transitionAttendance(ctx, 1, models.AttendancePending, "LATE")
	assert.Error(t, err)
}
