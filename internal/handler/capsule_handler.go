package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"capsulevault/internal/errors"
	"capsulevault/internal/service"
)

// CapsuleHandler handles capsule endpoints.
type CapsuleHandler struct {
	capsuleService service.CapsuleService
}

// NewCapsuleHandler creates a new capsule handler.
func NewCapsuleHandler(capsuleService service.CapsuleService) *CapsuleHandler {
	return &CapsuleHandler{capsuleService: capsuleService}
}

// CreateCapsuleRequest represents a capsule creation request.
type CreateCapsuleRequest struct {
	Message  string    `json:"message" validate:"required"`
	UnlockAt time.Time `json:"unlock_at" validate:"required"`
}

// CreateCapsuleResponse carries the unlock code, disclosed only at creation.
type CreateCapsuleResponse struct {
	ID         uint      `json:"id"`
	UnlockCode string    `json:"unlock_code"`
	UnlockAt   time.Time `json:"unlock_at"`
}

// UpdateCapsuleRequest represents a capsule revision. Message and unlock time
// are each optional; the unlock code is the possession proof.
type UpdateCapsuleRequest struct {
	Code     string     `json:"code" validate:"required"`
	Message  *string    `json:"message"`
	UnlockAt *time.Time `json:"unlock_at"`
}

// Create godoc
// @Summary Seal a new capsule
// @Tags capsules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCapsuleRequest true "Capsule payload"
// @Success 201 {object} CreateCapsuleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /capsules [post]
func (h *CapsuleHandler) Create(c echo.Context) error {
	username, err := currentUsername(c)
	if err != nil {
		return err
	}

	var req CreateCapsuleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	capsule, err := h.capsuleService.Create(c.Request().Context(), username, req.Message, req.UnlockAt)
	if err != nil {
		he := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, CreateCapsuleResponse{
		ID:         capsule.ID,
		UnlockCode: capsule.UnlockCode,
		UnlockAt:   capsule.UnlockAt,
	})
}

// List godoc
// @Summary List the caller's capsules
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (1-indexed)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} service.CapsulePage
// @Failure 401 {object} errors.ErrorResponse
// @Router /capsules [get]
func (h *CapsuleHandler) List(c echo.Context) error {
	username, err := currentUsername(c)
	if err != nil {
		return err
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	result, err := h.capsuleService.List(c.Request().Context(), username, page, limit)
	if err != nil {
		he := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// Get godoc
// @Summary Open an unlockable capsule
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Capsule ID"
// @Param code query string true "Unlock code"
// @Success 200 {object} model.Capsule
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 410 {object} errors.ErrorResponse
// @Router /capsules/{id} [get]
func (h *CapsuleHandler) Get(c echo.Context) error {
	id, err := capsuleID(c)
	if err != nil {
		return err
	}
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "unlock code is required")
	}

	capsule, err := h.capsuleService.Get(c.Request().Context(), id, code)
	if err != nil {
		he := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsule)
}

// Update godoc
// @Summary Revise a still-locked capsule
// @Tags capsules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Capsule ID"
// @Param request body UpdateCapsuleRequest true "Revision payload"
// @Success 200 {object} model.Capsule
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 410 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /capsules/{id} [put]
func (h *CapsuleHandler) Update(c echo.Context) error {
	username, err := currentUsername(c)
	if err != nil {
		return err
	}
	id, err := capsuleID(c)
	if err != nil {
		return err
	}

	var req UpdateCapsuleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	capsule, err := h.capsuleService.Update(c.Request().Context(), id, req.Code, username, req.Message, req.UnlockAt)
	if err != nil {
		he := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsule)
}

// Delete godoc
// @Summary Delete a still-locked capsule
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Capsule ID"
// @Param code query string true "Unlock code"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /capsules/{id} [delete]
func (h *CapsuleHandler) Delete(c echo.Context) error {
	username, err := currentUsername(c)
	if err != nil {
		return err
	}
	id, err := capsuleID(c)
	if err != nil {
		return err
	}
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "unlock code is required")
	}

	if err := h.capsuleService.Delete(c.Request().Context(), id, code, username); err != nil {
		he := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "capsule deleted",
	})
}

func capsuleID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid capsule id")
	}
	return uint(id), nil
}

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
