package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/calendar"
	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
	"github.com/ElVatoEste/biblioteca-reservas/internal/service"
	"github.com/labstack/echo/v4"
)

const maxPageSize = 100

type ReservationHandler struct {
	svc             service.ReservationService
	loc             *time.Location
	defaultPageSize int
	now             func() time.Time
}

func NewReservationHandler(svc service.ReservationService, loc *time.Location, defaultPageSize int) *ReservationHandler {
	if loc == nil {
		loc = time.UTC
	}
	if defaultPageSize < 1 {
		defaultPageSize = 10
	}
	return &ReservationHandler{svc: svc, loc: loc, defaultPageSize: defaultPageSize, now: time.Now}
}

// RegisterRoutes mounts the reservation endpoints on api. authn guards every
// route; admin additionally guards the attendance routes.
func (h *ReservationHandler) RegisterRoutes(api *echo.Group, authn, admin echo.MiddlewareFunc) {
	res := api.Group("/reservations", authn)
	res.GET("", h.ListReservations)
	res.POST("/availability", h.CheckAvailability)
	res.POST("", h.CreateReservation)
	res.PUT("/:id", h.UpdateReservation)
	res.DELETE("/:id", h.DeleteReservation)
	res.PATCH("/:id/attendance", h.SetAttendance, admin)

	api.GET("/attendance", h.ListAttendance, authn, admin)
}

func (h *ReservationHandler) ListReservations(c echo.Context) error {
	start, end := calendar.SchedulerWindow(h.now(), h.loc)
	var err error
	if s := c.QueryParam("start"); s != "" {
		if start, err = calendar.Parse(s, h.loc); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start")
		}
	}
	if s := c.QueryParam("end"); s != "" {
		if end, err = calendar.Parse(s, h.loc); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end")
		}
	}
	return h.listPage(c, start, end)
}

func (h *ReservationHandler) ListAttendance(c echo.Context) error {
	now := h.now().In(h.loc)
	year, month := now.Year(), now.Month()
	if s := c.QueryParam("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		year = y
	}
	if s := c.QueryParam("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid month")
		}
		month = time.Month(m)
	}
	start, end := calendar.MonthRange(year, month, h.loc)
	return h.listPage(c, start, end)
}

func (h *ReservationHandler) listPage(c echo.Context, start, end time.Time) error {
	q := repository.RangeQuery{Start: start, End: end, PageSize: h.defaultPageSize}
	if s := c.QueryParam("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxPageSize {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page_size")
		}
		q.PageSize = n
	}
	if s := c.QueryParam("cursor"); s != "" {
		cur, err := repository.DecodeCursor(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		q.After = cur
	}

	page, err := h.svc.ListRange(c.Request().Context(), q)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPageResponse(page))
}

// bindReservation decodes and validates the form into a candidate.
func (h *ReservationHandler) bindReservation(c echo.Context) (*models.Reservation, error) {
	var req dto.ReservationRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, validationFailed(dto.FieldErrors(err), err)
	}
	candidate, fields := req.ToModel(h.loc)
	if fields != nil {
		return nil, validationFailed(fields, nil)
	}
	return candidate, nil
}

func (h *ReservationHandler) CheckAvailability(c echo.Context) error {
	candidate, err := h.bindReservation(c)
	if err != nil {
		return err
	}
	if s := c.QueryParam("id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
		}
		candidate.ReservationID = id
	}

	fields, err := h.svc.CheckAvailability(c.Request().Context(), candidate)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.AvailabilityResponse{Available: len(fields) == 0, Errors: fields})
}

func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	candidate, err := h.bindReservation(c)
	if err != nil {
		return err
	}
	created, err := h.svc.Create(c.Request().Context(), candidate)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToReservationResponse(created))
}

func (h *ReservationHandler) UpdateReservation(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	candidate, err := h.bindReservation(c)
	if err != nil {
		return err
	}
	candidate.ReservationID = id

	updated, err := h.svc.Update(c.Request().Context(), candidate)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToReservationResponse(updated))
}

func (h *ReservationHandler) DeleteReservation(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReservationHandler) SetAttendance(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	var req dto.AttendanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	status, err := models.ParseAttendance(req.Status)
	if err != nil || req.Status == "" {
		return validationFailed(map[string]string{"status": "unknown attendance status"}, nil)
	}

	updated, err := h.svc.SetAttendance(c.Request().Context(), id, status)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToReservationResponse(updated))
}

func reservationID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
	}
	return id, nil
}

func validationFailed(fields map[string]string, err error) error {
	if fields == nil {
		msg := "invalid request"
		if err != nil {
			msg = err.Error()
		}
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, dto.ErrorResponse{
		Message: service.ErrValidation.Error(),
		Errors:  fields,
	})
}

func mapServiceError(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationFailed(verr.Fields, err)
	case errors.Is(err, service.ErrReservationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrMissingID),
		errors.Is(err, repository.ErrInvalidPageSize),
		errors.Is(err, repository.ErrInvalidCursor):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
