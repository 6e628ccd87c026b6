package handler

import (
	"errors"
	"net/http"

	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/ElVatoEste/biblioteca-reservas/internal/middleware"
	"github.com/labstack/echo/v4"
)

// IdentityVerifier turns a provider assertion into a verified identity.
type IdentityVerifier interface {
	Verify(assertion string) (*auth.ProviderIdentity, error)
}

type AuthHandler struct {
	accounts auth.AccountService
	identity IdentityVerifier
}

// NewAuthHandler builds the account endpoints. identity may be nil, in which
// case provider sign-in is not served.
func NewAuthHandler(accounts auth.AccountService, identity IdentityVerifier) *AuthHandler {
	return &AuthHandler{accounts: accounts, identity: identity}
}

func (h *AuthHandler) RegisterRoutes(api *echo.Group, authn, optional echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/signup", h.SignUp, optional)
	g.POST("/signin", h.SignIn)
	if h.identity != nil {
		g.POST("/provider", h.SignInWithProvider, optional)
	}
	g.POST("/refresh", h.Refresh, authn)
	g.GET("/me", h.Me, authn)
	g.PUT("/password", h.ChangePassword, authn)
	g.POST("/link/password", h.LinkPassword, authn)
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return validationFailed(dto.FieldErrors(err), err)
	}
	return nil
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	var req dto.SignUpRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	session, err := h.accounts.SignUp(c.Request().Context(), req.Email, req.Password, middleware.SessionFrom(c))
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToSessionResponse(session))
}

func (h *AuthHandler) SignIn(c echo.Context) error {
	var req dto.SignInRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	session, err := h.accounts.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(http.StatusOK, dto.ToSessionResponse(session))
}

func (h *AuthHandler) SignInWithProvider(c echo.Context) error {
	var req dto.ProviderSignInRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	identity, err := h.identity.Verify(req.Assertion)
	if err != nil {
		return mapAuthError(err)
	}
	session, err := h.accounts.SignInWithProvider(c.Request().Context(), identity, middleware.SessionFrom(c))
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(http.StatusOK, dto.ToSessionResponse(session))
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	session, err := h.accounts.Refresh(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(http.StatusOK, dto.ToSessionResponse(session))
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.accounts.Me(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req dto.ChangePasswordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	session, err := h.accounts.ChangePassword(c.Request().Context(), middleware.SessionFrom(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			return validationFailed(map[string]string{"currentPassword": err.Error()}, err)
		}
		return mapAuthError(err)
	}
	return c.JSON(http.StatusOK, dto.ToSessionResponse(session))
}

func (h *AuthHandler) LinkPassword(c echo.Context) error {
	var req dto.LinkPasswordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	session, err := h.accounts.LinkPassword(c.Request().Context(), middleware.SessionFrom(c), req.Password)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(http.StatusOK, dto.ToSessionResponse(session))
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailNotAllowed), errors.Is(err, auth.ErrSessionMismatch):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrEmailExists), errors.Is(err, auth.ErrLinkRequired):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrUnsupportedProvider):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
