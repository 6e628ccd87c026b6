package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
	"github.com/labstack/echo/v4"
)

// --- Mock ReservationService ---

type mockReservationService struct {
	checkFn      func(ctx context.Context, candidate *models.Reservation) (map[string]string, error)
	createFn     func(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error)
	updateFn     func(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error)
	deleteFn     func(ctx context.Context, id int64) error
	attendanceFn func(ctx context.Context, id int64, status models.AttendanceStatus) (*models.Reservation, error)
	listFn       func(ctx context.Context, q repository.RangeQuery) (*repository.Page, error)
}

func (m *mockReservationService) CheckAvailability(ctx context.Context, candidate *models.Reservation) (map[string]string, error) {
	return m.checkFn(ctx, candidate)
}
func (m *mockReservationService) Create(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error) {
	return m.createFn(ctx, candidate)
}
func (m *mockReservationService) Update(ctx context.Context, candidate *models.Reservation) (*models.Reservation, error) {
	return m.updateFn(ctx, candidate)
}
func (m *mockReservationService) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}
func (m *mockReservationService) SetAttendance(ctx context.Context, id int64, status models.AttendanceStatus) (*models.Reservation, error) {
	return m.attendanceFn(ctx, id, status)
}
func (m *mockReservationService) ListRange(ctx context.Context, q repository.RangeQuery) (*repository.Page, error) {
	return m.listFn(ctx, q)
}

// --- Mock AccountService ---

type mockAccounts struct {
	signUpFn   func(ctx context.Context, email, password string, current *auth.Session) (*auth.Session, error)
	signInFn   func(ctx context.Context, email, password string) (*auth.Session, error)
	providerFn func(ctx context.Context, identity *auth.ProviderIdentity, current *auth.Session) (*auth.Session, error)
	linkFn     func(ctx context.Context, current *auth.Session, password string) (*auth.Session, error)
	changeFn   func(ctx context.Context, current *auth.Session, oldPassword, newPassword string) (*auth.Session, error)
	refreshFn  func(ctx context.Context, current *auth.Session) (*auth.Session, error)
	meFn       func(ctx context.Context, current *auth.Session) (*models.User, error)
}

func (m *mockAccounts) IsEmailAllowed(ctx context.Context, email string) (bool, error) {
	return true, nil
}
func (m *mockAccounts) SignUp(ctx context.Context, email, password string, current *auth.Session) (*auth.Session, error) {
	return m.signUpFn(ctx, email, password, current)
}
func (m *mockAccounts) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	return m.signInFn(ctx, email, password)
}
func (m *mockAccounts) SignInWithProvider(ctx context.Context, identity *auth.ProviderIdentity, current *auth.Session) (*auth.Session, error) {
	return m.providerFn(ctx, identity, current)
}
func (m *mockAccounts) LinkPassword(ctx context.Context, current *auth.Session, password string) (*auth.Session, error) {
	return m.linkFn(ctx, current, password)
}
func (m *mockAccounts) ChangePassword(ctx context.Context, current *auth.Session, oldPassword, newPassword string) (*auth.Session, error) {
	return m.changeFn(ctx, current, oldPassword, newPassword)
}
func (m *mockAccounts) Refresh(ctx context.Context, current *auth.Session) (*auth.Session, error) {
	return m.refreshFn(ctx, current)
}
func (m *mockAccounts) Me(ctx context.Context, current *auth.Session) (*models.User, error) {
	return m.meFn(ctx, current)
}

// --- Mock IdentityVerifier ---

type mockIdentity struct {
	identity *auth.ProviderIdentity
	err      error
}

func (m *mockIdentity) Verify(string) (*auth.ProviderIdentity, error) {
	return m.identity, m.err
}

// --- Mock AllowlistRepository ---

type mockAllowlist struct {
	emails []string
}

func (m *mockAllowlist) Count(ctx context.Context) (int64, error) {
	return int64(len(m.emails)), nil
}
func (m *mockAllowlist) Contains(ctx context.Context, email string) (bool, error) {
	for _, e := range m.emails {
		if e == email {
			return true, nil
		}
	}
	return false, nil
}
func (m *mockAllowlist) List(ctx context.Context) ([]models.AllowedEmail, error) {
	out := make([]models.AllowedEmail, 0, len(m.emails))
	for _, e := range m.emails {
		out = append(out, models.AllowedEmail{Email: e})
	}
	return out, nil
}
func (m *mockAllowlist) Add(ctx context.Context, email string) error {
	m.emails = append(m.emails, strings.ToLower(email))
	return nil
}
func (m *mockAllowlist) Remove(ctx context.Context, email string) error {
	kept := m.emails[:0]
	for _, e := range m.emails {
		if e != strings.ToLower(email) {
			kept = append(kept, e)
		}
	}
	m.emails = kept
	return nil
}

// --- helpers ---

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = dto.NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 0
}
