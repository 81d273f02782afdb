package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-sim/internal/middleware"
	"github.com/noah-isme/campus-sim/internal/models"
)

// Routes groups the handlers mounted by Register.
type Routes struct {
	Simulation *SimulationHandler
	Auth       *AuthHandler
	Metrics    *MetricsHandler
	Tokens     middleware.TokenValidator
}

// Register mounts probes at the root and the API under prefix. Reads are
// public; anything that mutates the world requires an admin token.
func Register(engine *gin.Engine, prefix string, r Routes) {
	if r.Metrics != nil {
		engine.GET("/health", r.Metrics.Health)
		engine.GET("/metrics", r.Metrics.Prometheus)
	}

	api := engine.Group(prefix)
	if r.Auth != nil {
		api.POST("/auth/login", r.Auth.Login)
	}

	sim := api.Group("/simulation")
	sim.GET("/state", r.Simulation.State)
	sim.GET("/periods", r.Simulation.Periods)
	sim.GET("/periods/:code/risks", r.Simulation.PeriodRisks)
	api.GET("/exports/:token", r.Simulation.Download)

	admin := sim.Group("", middleware.JWT(r.Tokens), middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/seed", r.Simulation.Seed)
	admin.POST("/advance-week", r.Simulation.AdvanceWeek)
	admin.POST("/periods/:code/risks/export", r.Simulation.ExportRisks)
}
