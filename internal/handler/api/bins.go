package api

import (
	"BinPulse/internal/domain/models"
	mid "BinPulse/internal/middleware"
	"BinPulse/internal/usecase"
	xhttp "BinPulse/pkg/http"
	xlogger "BinPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BinsHandler serves /api/bins.
type BinsHandler struct {
	logger *xlogger.Logger
	bins   *usecase.BinsUseCase
}

func NewBinsHandler(logger *xlogger.Logger, bins *usecase.BinsUseCase) *BinsHandler {
	return &BinsHandler{logger: logger, bins: bins}
}

func (h *BinsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/bins", mid.Identity())
	// devices report levels without a user session
	g.PATCH("/:id/level", h.SetLevel)

	authed := g.Group("", mid.RequireUser())
	authed.GET("", h.List)
	authed.POST("", h.Create)
	authed.GET("/:id", h.Get)
	authed.PUT("/:id", h.Update)
	authed.DELETE("/:id", h.Delete)
}

func (h *BinsHandler) List(c echo.Context) error {
	req := &models.ListBinsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bins, err := h.bins.List(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("list bins error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, bins, int64(len(bins)))
}

func (h *BinsHandler) Get(c echo.Context) error {
	bin, err := h.bins.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, bin)
}

func (h *BinsHandler) Create(c echo.Context) error {
	req := &models.CreateBinRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bin, err := h.bins.Create(c.Request().Context(), mid.PrincipalFrom(c), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, bin)
}

func (h *BinsHandler) Update(c echo.Context) error {
	req := &models.UpdateBinRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bin, err := h.bins.Update(c.Request().Context(), mid.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, bin)
}

func (h *BinsHandler) Delete(c echo.Context) error {
	if err := h.bins.Delete(c.Request().Context(), mid.PrincipalFrom(c), c.Param("id")); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"message": "Bin deleted successfully"})
}

func (h *BinsHandler) SetLevel(c echo.Context) error {
	req := &models.SetLevelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bin, err := h.bins.SetLevel(c.Request().Context(), c.Param("id"), *req.CurrentLevel)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, bin)
}
