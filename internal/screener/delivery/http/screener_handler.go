package http

import (
	"net/http"
	"time"

	"options-income-screener/internal/screener/repository"
	"options-income-screener/internal/screener/service"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/utils"

	"github.com/labstack/echo/v4"
)

// ScreenerHandler handles HTTP requests for screening results and health.
type ScreenerHandler struct {
	picksRepo  repository.PicksRepository
	runRepo    repository.PipelineRunRepository
	monitoring service.MonitoringService
	logger     *logger.Logger
}

// NewScreenerHandler creates a new ScreenerHandler.
func NewScreenerHandler(picksRepo repository.PicksRepository, runRepo repository.PipelineRunRepository, monitoring service.MonitoringService, logger *logger.Logger) *ScreenerHandler {
	return &ScreenerHandler{
		picksRepo:  picksRepo,
		runRepo:    runRepo,
		monitoring: monitoring,
		logger:     logger,
	}
}

// RegisterRoutes registers the screener routes to the Echo group.
func (h *ScreenerHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.GetHealth)
	g.GET("/picks", h.GetPicks)
	g.GET("/runs/latest", h.GetLatestRun)
}

// GetHealth godoc
// @Summary Get pipeline health
// @Description Get the composite health score for the screening pipeline
// @Tags monitoring
// @Produce  json
// @Success 200 {object} dto.HealthStatus
// @Failure 500 {object} echo.Map
// @Router /health [get]
func (h *ScreenerHandler) GetHealth(c echo.Context) error {
	status, err := h.monitoring.GetHealthStatus(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to compute health status", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, status)
}

// GetPicks godoc
// @Summary Get screened picks
// @Description Get the screened picks for a date (defaults to today, market time)
// @Tags picks
// @Produce  json
// @Param   date  query   string  false   "Date in YYYY-MM-DD"
// @Success 200 {array} entity.ScreenedPick
// @Failure 400 {object} echo.Map
// @Failure 500 {object} echo.Map
// @Router /picks [get]
func (h *ScreenerHandler) GetPicks(c echo.Context) error {
	asOf := utils.TodayMarket()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		asOf = parsed
	}

	picks, err := h.picksRepo.FindByDate(c.Request().Context(), asOf)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, picks)
}

// GetLatestRun godoc
// @Summary Get the latest pipeline run
// @Description Get the most recently started pipeline run record
// @Tags runs
// @Produce  json
// @Success 200 {object} entity.PipelineRun
// @Failure 404 {object} echo.Map
// @Failure 500 {object} echo.Map
// @Router /runs/latest [get]
func (h *ScreenerHandler) GetLatestRun(c echo.Context) error {
	run, err := h.runRepo.FindLatest(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "No pipeline run recorded yet"})
	}
	return c.JSON(http.StatusOK, run)
}
