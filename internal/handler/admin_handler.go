package handler

import (
	"net/http"
	"strings"

	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
	"github.com/labstack/echo/v4"
)

// AdminHandler manages the sign-up allowlist.
type AdminHandler struct {
	allowlist repository.AllowlistRepository
}

func NewAdminHandler(allowlist repository.AllowlistRepository) *AdminHandler {
	return &AdminHandler{allowlist: allowlist}
}

func (h *AdminHandler) RegisterRoutes(api *echo.Group, authn, admin echo.MiddlewareFunc) {
	g := api.Group("/admin/allowed-emails", authn, admin)
	g.GET("", h.ListAllowed)
	g.POST("", h.AddAllowed)
	g.DELETE("/:email", h.RemoveAllowed)
}

func (h *AdminHandler) ListAllowed(c echo.Context) error {
	list, err := h.allowlist.List(c.Request().Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.AllowedEmail{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) AddAllowed(c echo.Context) error {
	var req dto.AllowedEmailRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := h.allowlist.Add(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, models.AllowedEmail{Email: strings.ToLower(strings.TrimSpace(req.Email))})
}

func (h *AdminHandler) RemoveAllowed(c echo.Context) error {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if err := h.allowlist.Remove(c.Request().Context(), email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
