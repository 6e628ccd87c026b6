package service

import (
	"context"
	"fmt"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
)

const DefaultRoomCapacity = 16

type AvailabilityChecker interface {
	// Check returns one message per conflicting field. An empty map means
	// the candidate fits. Storage failures are returned as errors, never as
	// an empty map.
	Check(ctx context.Context, candidate *models.Reservation) (map[string]string, error)
}

type availabilityChecker struct {
	repo     repository.ReservationRepository
	capacity int
}

func NewAvailabilityChecker(repo repository.ReservationRepository, capacity int) AvailabilityChecker {
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}
	return &availabilityChecker{repo: repo, capacity: capacity}
}

func (c *availabilityChecker) Check(ctx context.Context, candidate *models.Reservation) (map[string]string, error) {
	existing, err := c.repo.FindStartingBefore(ctx, candidate.EndAt)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}

	var occupied int
	var whiteboard, projector, computer bool
	for i := range existing {
		r := &existing[i]
		if !r.EndAt.After(candidate.StartAt) {
			continue
		}
		// an update never conflicts with its own stored version
		if candidate.ReservationID != 0 && r.ReservationID == candidate.ReservationID {
			continue
		}
		occupied += r.PartySize
		whiteboard = whiteboard || r.Whiteboard
		projector = projector || r.Projector
		computer = computer || r.Computer
	}

	conflicts := map[string]string{}
	if occupied+candidate.PartySize > c.capacity {
		remaining := max(c.capacity-occupied, 0)
		conflicts[FieldPartySize] = fmt.Sprintf("only %d seats remaining in this time slot", remaining)
	}
	if candidate.Whiteboard && whiteboard {
		conflicts[FieldWhiteboard] = "the whiteboard is already reserved in this time slot"
	}
	if candidate.Projector && projector {
		conflicts[FieldProjector] = "the projector is already reserved in this time slot"
	}
	if candidate.Computer && computer {
		conflicts[FieldComputer] = "the computer is already reserved in this time slot"
	}
	return conflicts, nil
}
