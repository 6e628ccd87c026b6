// Package client talks to the reservation API over HTTP. It satisfies
// pager.Source so the scheduler and attendance pagers can run against a
// remote server, and its Refresh method plugs into auth.Keeper.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api %d: %s %v", e.Status, e.Message, e.Fields)
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Follow keeps the client's token in step with keeper.
func (c *Client) Follow(keeper *auth.Keeper) (unsubscribe func()) {
	if s := keeper.Current(); s != nil {
		c.SetToken(s.Token)
	}
	return keeper.Subscribe(func(s *auth.Session) {
		if s == nil {
			c.SetToken("")
			return
		}
		c.SetToken(s.Token)
	})
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Message, Fields: e.Errors}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func toSession(r dto.SessionResponse) *auth.Session {
	return &auth.Session{
		UserID:    r.User.ID,
		Email:     r.User.Email,
		Roles:     r.User.Roles,
		Providers: r.User.Providers,
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt,
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	var resp dto.SessionResponse
	req := dto.SignInRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signin", "", req, &resp); err != nil {
		return nil, err
	}
	return toSession(resp), nil
}

// Refresh matches auth.RefreshFunc.
func (c *Client) Refresh(ctx context.Context, current *auth.Session) (*auth.Session, error) {
	var resp dto.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", current.Token, nil, &resp); err != nil {
		return nil, err
	}
	return toSession(resp), nil
}

func fromResponse(r dto.ReservationResponse) models.Reservation {
	return models.Reservation{
		ReservationID: r.ID,
		StudentName:   r.StudentName,
		CIF:           r.CIF,
		Email:         r.Email,
		Subject:       r.Subject,
		PartySize:     r.PartySize,
		StartAt:       r.StartAt.UTC(),
		EndAt:         r.EndAt.UTC(),
		Whiteboard:    r.Whiteboard,
		Projector:     r.Projector,
		Computer:      r.Computer,
		Attendance:    r.Attendance,
	}
}

// ListRange fetches one page of reservations starting in [q.Start, q.End).
func (c *Client) ListRange(ctx context.Context, q repository.RangeQuery) (*repository.Page, error) {
	v := url.Values{}
	v.Set("start", q.Start.UTC().Format(time.RFC3339))
	v.Set("end", q.End.UTC().Format(time.RFC3339))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.After != nil {
		v.Set("cursor", q.After.Encode())
	}

	var resp dto.PageResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/reservations?"+v.Encode(), c.bearer(), nil, &resp); err != nil {
		return nil, err
	}

	page := &repository.Page{Items: make([]models.Reservation, len(resp.Items))}
	for i, item := range resp.Items {
		page.Items[i] = fromResponse(item)
	}
	if resp.NextCursor != "" {
		next, err := repository.DecodeCursor(resp.NextCursor)
		if err != nil {
			return nil, err
		}
		page.Next = next
	}
	return page, nil
}

func (c *Client) SetAttendance(ctx context.Context, id int64, status models.AttendanceStatus) (*models.Reservation, error) {
	var resp dto.ReservationResponse
	path := "/api/v1/reservations/" + strconv.FormatInt(id, 10) + "/attendance"
	if err := c.do(ctx, http.MethodPatch, path, c.bearer(), dto.AttendanceRequest{Status: string(status)}, &resp); err != nil {
		return nil, err
	}
	r := fromResponse(resp)
	return &r, nil
}
