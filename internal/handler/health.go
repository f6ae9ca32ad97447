package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/gin-gonic/gin"
)

// Pinger зависимость, доступность которой проверяет /healthz
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string                  `json:"status"`
	Checks map[string]string       `json:"checks"`
	Clicks *models.ClickQueueStats `json:"clicks,omitempty"`
}

type HealthHandler struct {
	checks  map[string]Pinger
	clicks  func() models.ClickQueueStats
	timeout time.Duration
}

// NewHealthHandler clicks может быть nil
func NewHealthHandler(checks map[string]Pinger, clicks func() models.ClickQueueStats) *HealthHandler {
	return &HealthHandler{checks: checks, clicks: clicks, timeout: 2 * time.Second}
}

// Health godoc
// @Summary Health check
// @Description Pings the link store and the cache
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if h.clicks != nil {
		stats := h.clicks()
		resp.Clicks = &stats
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
