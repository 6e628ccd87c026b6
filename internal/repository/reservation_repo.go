package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"gorm.io/gorm"
)

var ErrInvalidPageSize = errors.New("page size must be positive")

// RangeQuery selects reservations whose start lies in [Start, End).
type RangeQuery struct {
	Start    time.Time
	End      time.Time
	PageSize int
	After    *Cursor
}

// Page is one slice of a range query. Next is nil once the range is exhausted.
type Page struct {
	Items []models.Reservation
	Next  *Cursor
}

type ReservationRepository interface {
	Create(ctx context.Context, r *models.Reservation) error
	QueryRange(ctx context.Context, q RangeQuery) (*Page, error)
	FindStartingBefore(ctx context.Context, end time.Time) ([]models.Reservation, error)
	FindByReservationID(ctx context.Context, id int64) ([]models.Reservation, error)
	Update(ctx context.Context, r *models.Reservation) error
	UpdateAttendance(ctx context.Context, docKey string, status models.AttendanceStatus) error
	Delete(ctx context.Context, docKey string) error
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

// QueryRange reads one row past the page size to learn whether another page exists.
func (r *reservationRepository) QueryRange(ctx context.Context, q RangeQuery) (*Page, error) {
	if q.PageSize <= 0 {
		return nil, ErrInvalidPageSize
	}

	tx := r.db.WithContext(ctx).
		Where("start_at >= ? AND start_at < ?", q.Start.UTC(), q.End.UTC())
	if q.After != nil {
		after := q.After.StartAt.UTC()
		tx = tx.Where("(start_at > ? OR (start_at = ? AND doc_key > ?))", after, after, q.After.DocKey)
	}

	var items []models.Reservation
	if err := tx.Order("start_at ASC, doc_key ASC").Limit(q.PageSize + 1).Find(&items).Error; err != nil {
		return nil, err
	}

	page := &Page{Items: items}
	if len(items) > q.PageSize {
		page.Items = items[:q.PageSize]
		last := page.Items[q.PageSize-1]
		page.Next = &Cursor{StartAt: last.StartAt, DocKey: last.DocKey}
	}
	return page, nil
}

func (r *reservationRepository) FindStartingBefore(ctx context.Context, end time.Time) ([]models.Reservation, error) {
	var items []models.Reservation
	err := r.db.WithContext(ctx).
		Where("start_at < ?", end.UTC()).
		Order("start_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *reservationRepository) FindByReservationID(ctx context.Context, id int64) ([]models.Reservation, error) {
	var items []models.Reservation
	if err := r.db.WithContext(ctx).Where("reservation_id = ?", id).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Update overwrites every mutable column of the record identified by DocKey.
func (r *reservationRepository) Update(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("doc_key = ?", res.DocKey).
		Updates(map[string]any{
			"reservation_id": res.ReservationID,
			"student_name":   res.StudentName,
			"cif":            res.CIF,
			"email":          res.Email,
			"subject":        res.Subject,
			"party_size":     res.PartySize,
			"start_at":       res.StartAt.UTC(),
			"end_at":         res.EndAt.UTC(),
			"whiteboard":     res.Whiteboard,
			"projector":      res.Projector,
			"computer":       res.Computer,
			"attendance":     res.Attendance,
		}).Error
}

func (r *reservationRepository) UpdateAttendance(ctx context.Context, docKey string, status models.AttendanceStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("doc_key = ?", docKey).
		Update("attendance", status).Error
}

func (r *reservationRepository) Delete(ctx context.Context, docKey string) error {
	return r.db.WithContext(ctx).Where("doc_key = ?", docKey).Delete(&models.Reservation{}).Error
}
