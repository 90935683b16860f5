package api

import (
	"BinPulse/internal/domain/models"
	mid "BinPulse/internal/middleware"
	"BinPulse/internal/usecase"
	xhttp "BinPulse/pkg/http"
	xlogger "BinPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type ReportsHandler struct {
	logger  *xlogger.Logger
	reports *usecase.ReportsUseCase
}

func NewReportsHandler(logger *xlogger.Logger, reports *usecase.ReportsUseCase) *ReportsHandler {
	return &ReportsHandler{logger: logger, reports: reports}
}

func (h *ReportsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/reports", h.Summary, mid.Identity(), mid.RequireUser())
}

func (h *ReportsHandler) Summary(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := h.reports.Range(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	sum, err := h.reports.Summary(c.Request().Context(), from, to)
	if err != nil {
		h.logger.Error("reports usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, sum)
}
