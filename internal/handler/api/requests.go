package api

import (
	"BinPulse/internal/domain/models"
	mid "BinPulse/internal/middleware"
	"BinPulse/internal/usecase"
	xhttp "BinPulse/pkg/http"
	xlogger "BinPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestsHandler serves /api/requests.
type RequestsHandler struct {
	logger   *xlogger.Logger
	requests *usecase.RequestsUseCase
}

func NewRequestsHandler(logger *xlogger.Logger, requests *usecase.RequestsUseCase) *RequestsHandler {
	return &RequestsHandler{logger: logger, requests: requests}
}

func (h *RequestsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/requests", mid.Identity(), mid.RequireUser())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
}

func (h *RequestsHandler) List(c echo.Context) error {
	req := &models.ListRequestsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.requests.List(c.Request().Context(), mid.PrincipalFrom(c), req)
	if err != nil {
		h.logger.Error("list requests error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *RequestsHandler) Get(c echo.Context) error {
	r, err := h.requests.Get(c.Request().Context(), mid.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, r)
}

func (h *RequestsHandler) Create(c echo.Context) error {
	req := &models.CreateServiceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.requests.Create(c.Request().Context(), mid.PrincipalFrom(c), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, r)
}

func (h *RequestsHandler) Update(c echo.Context) error {
	req := &models.UpdateServiceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.requests.Update(c.Request().Context(), mid.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, r)
}

func (h *RequestsHandler) UpdateStatus(c echo.Context) error {
	req := &models.UpdateRequestStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.requests.UpdateStatus(c.Request().Context(), mid.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, r)
}

func (h *RequestsHandler) Delete(c echo.Context) error {
	if err := h.requests.Delete(c.Request().Context(), mid.PrincipalFrom(c), c.Param("id")); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"message": "Request deleted successfully"})
}
