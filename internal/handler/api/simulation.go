package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/service/ratelimit"
	"BinPulse/internal/usecase"
	xhttp "BinPulse/pkg/http"
	xlogger "BinPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// SimulationHandler serves the tick endpoints, the scheduler controls and the
// live websocket stream. The tick endpoints answer with the bare summary
// object rather than the API envelope.
type SimulationHandler struct {
	logger    *xlogger.Logger
	orch      *usecase.TickOrchestrator
	scheduler *usecase.Scheduler
	limiter   *ratelimit.Limiter
	// lifetime of scheduler loops started over HTTP
	appCtx   context.Context
	upgrader websocket.Upgrader
}

func NewSimulationHandler(appCtx context.Context, logger *xlogger.Logger, orch *usecase.TickOrchestrator, scheduler *usecase.Scheduler, limiter *ratelimit.Limiter) *SimulationHandler {
	return &SimulationHandler{
		logger:    logger,
		orch:      orch,
		scheduler: scheduler,
		limiter:   limiter,
		appCtx:    appCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *SimulationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/simulation")
	g.GET("", h.Snapshot)
	if h.limiter != nil {
		g.POST("", h.Tick, h.limiter.Middleware(nil))
	} else {
		g.POST("", h.Tick)
	}
	g.GET("/scheduler", h.Status)
	g.POST("/scheduler/start", h.Start)
	g.POST("/scheduler/stop", h.Stop)
	g.GET("/stream", h.Stream)
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *SimulationHandler) Snapshot(c echo.Context) error {
	snap, err := h.orch.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("simulation snapshot error", xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, failure{Error: "Failed to get simulation status"})
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *SimulationHandler) Tick(c echo.Context) error {
	sum, err := h.scheduler.RunOnce(c.Request().Context())
	if errors.Is(err, usecase.ErrTickInProgress) {
		return c.JSON(http.StatusConflict, failure{Error: err.Error()})
	}
	if err != nil {
		h.logger.Error("simulation tick error", xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, failure{Error: "Failed to run simulation"})
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *SimulationHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scheduler.Status())
}

func (h *SimulationHandler) Start(c echo.Context) error {
	if !h.scheduler.Start(h.appCtx) {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("Scheduler already running"))
	}
	return xhttp.SuccessResponse(c, h.scheduler.Status())
}

func (h *SimulationHandler) Stop(c echo.Context) error {
	if !h.scheduler.Stop() {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("Scheduler is not running"))
	}
	return xhttp.SuccessResponse(c, h.scheduler.Status())
}

type streamFrame struct {
	Type     string                     `json:"type"`
	Snapshot *models.SimulationSnapshot `json:"snapshot,omitempty"`
	Tick     *models.TickSummary        `json:"tick,omitempty"`
}

// Stream pushes the current snapshot, then every tick summary.
func (h *SimulationHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ch := h.scheduler.Subscribe()
	defer h.scheduler.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// read loop only handles control frames and notices the client leaving
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(f streamFrame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(f)
	}

	if snap, err := h.orch.Snapshot(ctx); err == nil {
		if err := write(streamFrame{Type: "snapshot", Snapshot: snap}); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.appCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return nil
		case sum, ok := <-ch:
			if !ok {
				return nil
			}
			if err := write(streamFrame{Type: "tick", Tick: &sum}); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
