package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/ElVatoEste/biblioteca-reservas/internal/handler"
	"github.com/ElVatoEste/biblioteca-reservas/internal/middleware"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/pager"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
	"github.com/ElVatoEste/biblioteca-reservas/internal/service"
	"github.com/ElVatoEste/biblioteca-reservas/pkg/database"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var managua = time.FixedZone("CST", -6*60*60)

// newServer runs the real API over an in-memory database with n
// reservations starting hourly from 2025-03-03 14:00 UTC.
func newServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open("sqlite", "file::memory:")
	require.NoError(t, err)

	resRepo := repository.NewReservationRepository(db)
	allowlist := repository.NewAllowlistRepository(db)
	svc := service.NewReservationService(resRepo, service.NewAvailabilityChecker(resRepo, 16), service.NewIDGenerator(nil), nil, nil)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	accounts := auth.NewAccountService(repository.NewUserRepository(db), allowlist, tokens, "uamv.edu.ni", bcrypt.MinCost)

	_, err = accounts.SignUp(ctx, "admin@uamv.edu.ni", "secret1", nil)
	require.NoError(t, err)

	first := time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		start := first.Add(time.Duration(i) * time.Hour)
		_, err := svc.Create(ctx, &models.Reservation{
			StudentName: "Estudiante",
			CIF:         fmt.Sprintf("21-%05d", i),
			Email:       "e@uamv.edu.ni",
			Subject:     "Estudio",
			PartySize:   2,
			StartAt:     start,
			EndAt:       start.Add(time.Hour),
		})
		require.NoError(t, err)
	}

	e := echo.New()
	e.Validator = dto.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler
	api := e.Group("/api/v1")
	authn := middleware.JWTAuth(tokens)
	admin := middleware.RequireRole(models.RoleAdmin)
	handler.NewAuthHandler(accounts, nil).RegisterRoutes(api, authn, middleware.OptionalJWTAuth(tokens))
	handler.NewReservationHandler(svc, managua, 10).RegisterRoutes(api, authn, admin)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func signedIn(t *testing.T, srv *httptest.Server) (*Client, *auth.Session) {
	t.Helper()
	c := New(srv.URL, srv.Client())
	s, err := c.SignIn(context.Background(), "admin@uamv.edu.ni", "secret1")
	require.NoError(t, err)
	c.SetToken(s.Token)
	return c, s
}

func TestClient_RequiresToken(t *testing.T) {
	srv := newServer(t, 0)
	c := New(srv.URL, srv.Client())

	_, err := c.ListRange(context.Background(), repository.RangeQuery{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), PageSize: 10,
	})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.SignIn(context.Background(), "admin@uamv.edu.ni", "wrong")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestScheduler_OverHTTP(t *testing.T) {
	srv := newServer(t, 25)
	c, _ := signedIn(t, srv)
	ctx := context.Background()

	s := pager.NewScheduler(c, 10)
	require.NoError(t, s.SetRange(ctx, time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC), time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)))

	var sizes []int
	var firsts []time.Time
	for {
		items := s.Items()
		sizes = append(sizes, len(items))
		firsts = append(firsts, items[0].StartAt)
		if !s.HasNext() {
			break
		}
		require.NoError(t, s.Next(ctx))
	}
	assert.Equal(t, []int{10, 10, 5}, sizes)
	assert.Equal(t, 3, s.Page())

	require.NoError(t, s.Prev(ctx))
	assert.Equal(t, firsts[1], s.Items()[0].StartAt)
}

func TestAttendance_OverHTTP(t *testing.T) {
	srv := newServer(t, 12)
	c, _ := signedIn(t, srv)
	ctx := context.Background()

	view := pager.NewAttendance(c, 10, managua)
	require.NoError(t, view.SetMonth(ctx, 2025, time.March))
	require.True(t, view.HasMore())
	require.NoError(t, view.LoadMore(ctx))
	assert.False(t, view.HasMore())
	require.Len(t, view.Items(), 12)

	target := view.Items()[3]
	updated, err := c.SetAttendance(ctx, target.ReservationID, models.AttendanceAttended)
	require.NoError(t, err)
	view.UpdateLocal(*updated)

	attended := view.Filter("", models.AttendanceAttended)
	require.Len(t, attended, 1)
	assert.Equal(t, target.ReservationID, attended[0].ReservationID)
}

func TestKeeper_RefreshesThroughClient(t *testing.T) {
	srv := newServer(t, 0)
	c, s := signedIn(t, srv)

	keeper := auth.NewKeeper(c.Refresh, 20*time.Millisecond)
	unfollow := c.Follow(keeper)
	defer unfollow()

	var refreshed atomic.Int32
	unsubscribe := keeper.Subscribe(func(got *auth.Session) {
		if got != nil && got.Email == s.Email {
			refreshed.Add(1)
		}
	})
	defer unsubscribe()

	keeper.Start(context.Background(), s)
	assert.Eventually(t, func() bool { return refreshed.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	keeper.Stop()
	assert.Nil(t, keeper.Current())
	assert.Empty(t, c.bearer())
}
