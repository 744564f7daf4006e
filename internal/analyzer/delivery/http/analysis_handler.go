package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/analyzer/service"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/logger"

	"github.com/labstack/echo/v4"
)

const heartbeatInterval = 15 * time.Second

// AnalysisHandler handles HTTP requests for stock analysis.
type AnalysisHandler struct {
	orchestrator service.OrchestratorService
	broadcaster  service.Broadcaster
	logger       *logger.Logger
	maxWorkers   int
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(orchestrator service.OrchestratorService, broadcaster service.Broadcaster, maxWorkers int, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		broadcaster:  broadcaster,
		logger:       log,
		maxWorkers:   maxWorkers,
	}
}

// RegisterRoutes registers the analysis routes to the Echo group.
func (h *AnalysisHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/stream", h.Stream)
	g.POST("/analyze", h.Analyze)
	g.POST("/batch_analyze", h.BatchAnalyze)
	g.GET("/task_status/:id", h.TaskStatus)
	g.GET("/system_info", h.SystemInfo)
}

// Stream subscribes the client to its server-sent event stream. Heartbeats
// keep idle connections alive; disconnecting unsubscribes the client and
// cancels its in-flight work.
func (h *AnalysisHandler) Stream(c echo.Context) error {
	clientID := c.QueryParam("client_id")
	if clientID == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "client_id is required"})
	}

	events, err := h.broadcaster.Subscribe(clientID)
	if err != nil {
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	}
	h.logger.Info("Client connected to stream", logger.StringField("client_id", clientID))
	defer func() {
		h.broadcaster.Unsubscribe(clientID)
		h.logger.Info("Client disconnected from stream", logger.StringField("client_id", clientID))
	}()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if err := writeSSE(resp, dto.NewStreamEvent(dto.EventHeartbeat, nil)); err != nil {
				return nil
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSE(resp, ev); err != nil {
				return nil
			}
		}
	}
}

// Analyze submits one analysis task.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	var req dto.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}
	market, err := parseMarket(req.Market)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	if req.ClientID == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "client_id is required"})
	}

	taskID, err := h.orchestrator.SubmitAnalysis(req.Symbol, market, req.ClientID)
	if err != nil {
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusAccepted, dto.SubmitResponse{TaskIDs: []string{taskID}})
}

// BatchAnalyze submits one analysis task per symbol.
func (h *AnalysisHandler) BatchAnalyze(c echo.Context) error {
	var req dto.BatchAnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}
	market, err := parseMarket(req.Market)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	if req.ClientID == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "client_id is required"})
	}

	ids, err := h.orchestrator.SubmitBatchAnalysis(req.Symbols, market, req.ClientID)
	if err != nil {
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusAccepted, dto.SubmitResponse{TaskIDs: ids})
}

// TaskStatus reports one task's state.
func (h *AnalysisHandler) TaskStatus(c echo.Context) error {
	status, err := h.orchestrator.GetTaskStatus(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, status)
}

// SystemInfo reports runtime counters.
func (h *AnalysisHandler) SystemInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.SystemInfoResponse{
		ActiveTasks: h.orchestrator.ActiveTasks(),
		MaxWorkers:  h.maxWorkers,
		Clients:     h.broadcaster.ActiveClients(),
	})
}

// writeSSE renders one event in SSE framing and flushes it out.
func writeSSE(resp *echo.Response, ev dto.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Event, payload); err != nil {
		return err
	}
	resp.Flush()
	return nil
}

func parseMarket(raw string) (entity.Market, error) {
	switch entity.Market(raw) {
	case entity.MarketAStock, entity.MarketHKStock, entity.MarketUSStock:
		return entity.Market(raw), nil
	case "":
		return entity.MarketAStock, nil
	default:
		return "", fmt.Errorf("unknown market %q", raw)
	}
}
