package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/looplab/fsm"
)

var allAttendance = []string{
	string(models.AttendancePending),
	string(models.AttendanceAttended),
	string(models.AttendanceNotAttended),
}

var attendanceEvents = map[models.AttendanceStatus]string{
	models.AttendancePending:     "reset",
	models.AttendanceAttended:    "mark_attended",
	models.AttendanceNotAttended: "mark_not_attended",
}

// newAttendanceFSM allows every transition: staff use it to correct
// mistakes as well as to record the outcome.
func newAttendanceFSM(id int64, current models.AttendanceStatus) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: "reset", Src: allAttendance, Dst: string(models.AttendancePending)},
			{Name: "mark_attended", Src: allAttendance, Dst: string(models.AttendanceAttended)},
			{Name: "mark_not_attended", Src: allAttendance, Dst: string(models.AttendanceNotAttended)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Printf("[Attendance] reservation %d: %s -> %s", id, e.Src, e.Dst)
			},
		},
	)
}

// transitionAttendance reports whether moving from current to next changes
// anything.
func transitionAttendance(ctx context.Context, id int64, current, next models.AttendanceStatus) (bool, error) {
	event, ok := attendanceEvents[next]
	if !ok {
		return false, fmt.Errorf("unknown attendance status %q", next)
	}

	machine := newAttendanceFSM(id, current)
	if err := machine.Event(ctx, event); err != nil {
		var noop fsm.NoTransitionError
		if errors.As(err, &noop) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
