package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/middleware"
	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/service"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
	"github.com/noah-isme/campus-sim/pkg/response"
)

type seeder interface {
	Seed(ctx context.Context, req service.SeedRequest) (*models.SeedSummary, error)
}

type ticker interface {
	AdvanceWeek(ctx context.Context) (*models.TickResult, error)
}

type simulationReader interface {
	State(ctx context.Context) (*service.StateView, error)
	Periods(ctx context.Context) ([]models.AcademicPeriod, error)
	PeriodRisks(ctx context.Context, code string) (*service.PeriodRisks, error)
}

type riskExporter interface {
	Generate(ctx context.Context, periodCode string, format service.ExportFormat) (*service.ExportResult, error)
	Open(token string) (*os.File, string, error)
}

// SimulationHandler wires HTTP endpoints to the seed, tick and read services.
type SimulationHandler struct {
	seeds   seeder
	ticks   ticker
	reads   simulationReader
	exports riskExporter
	logger  *zap.Logger
}

// NewSimulationHandler creates a new handler. exports may be nil to disable report routes.
func NewSimulationHandler(seeds seeder, ticks ticker, reads simulationReader, exports riskExporter, logger *zap.Logger) *SimulationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationHandler{seeds: seeds, ticks: ticks, reads: reads, exports: exports, logger: logger}
}

// Seed godoc
// @Summary Regenerate the synthetic institution
// @Description Clears every simulator entity and generates a new dataset for the year range.
// @Tags Simulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SeedRequest true "Year range"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /simulation/seed [post]
func (h *SimulationHandler) Seed(c *gin.Context) {
	var req service.SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid seed payload"))
		return
	}

	summary, err := h.seeds.Seed(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "seed", zap.Int("year_start", req.YearStart), zap.Int("year_end", req.YearEnd))
	response.Created(c, summary)
}

// AdvanceWeek godoc
// @Summary Advance the simulated clock by one week
// @Tags Simulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /simulation/advance-week [post]
func (h *SimulationHandler) AdvanceWeek(c *gin.Context) {
	res, err := h.ticks.AdvanceWeek(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "advance_week", zap.Time("new_date", res.NewDate))
	response.JSON(c, http.StatusOK, res)
}

// State godoc
// @Summary Current simulated date
// @Tags Simulation
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /simulation/state [get]
func (h *SimulationHandler) State(c *gin.Context) {
	view, err := h.reads.State(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Periods godoc
// @Summary List academic periods
// @Tags Simulation
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /simulation/periods [get]
func (h *SimulationHandler) Periods(c *gin.Context) {
	periods, err := h.reads.Periods(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, map[string]interface{}{"total": len(periods)})
}

// PeriodRisks godoc
// @Summary Student risk rows of a period
// @Tags Simulation
// @Produce json
// @Param code path string true "Period code, e.g. 2020SP"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /simulation/periods/{code}/risks [get]
func (h *SimulationHandler) PeriodRisks(c *gin.Context) {
	res, err := h.reads.PeriodRisks(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, map[string]interface{}{"total": len(res.Risks)})
}

// ExportRisks godoc
// @Summary Render the risk report of a period
// @Description Stores the report and returns a signed download URL.
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param code path string true "Period code"
// @Param format query string false "csv or pdf"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /simulation/periods/{code}/risks/export [post]
func (h *SimulationHandler) ExportRisks(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	format, err := service.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.exports.Generate(c.Request.Context(), c.Param("code"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Download godoc
// @Summary Download a stored export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *SimulationHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	file, relPath, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat export"))
		return
	}
	contentType := "text/csv"
	if filepath.Ext(relPath) == ".pdf" {
		contentType = "application/pdf"
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": "attachment; filename=\"" + filepath.Base(relPath) + "\"",
	})
}

func (h *SimulationHandler) audit(c *gin.Context, action string, fields ...zap.Field) {
	subject := ""
	if claims := middleware.ClaimsFromContext(c); claims != nil {
		subject = claims.Subject
	}
	h.logger.Info("operator action", append([]zap.Field{zap.String("action", action), zap.String("subject", subject)}, fields...)...)
}

// AuthHandler exchanges operator credentials for tokens.
type AuthHandler struct {
	service interface {
		Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	}
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Exchange operator credentials for an admin token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}
