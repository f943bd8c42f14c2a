package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-engine/internal/optimizer"
	"github.com/stitts-dev/lineup-engine/internal/simulator"
	"github.com/stitts-dev/lineup-engine/pkg/cache"
	"github.com/stitts-dev/lineup-engine/pkg/config"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
	"github.com/stitts-dev/lineup-engine/pkg/utils"
)

// SimulationHandler serves Monte Carlo simulation requests.
type SimulationHandler struct {
	cfg    *config.Config
	cache  *cache.ResultCache
	logger *logrus.Entry
}

func NewSimulationHandler(cfg *config.Config, rc *cache.ResultCache) *SimulationHandler {
	return &SimulationHandler{
		cfg:    cfg,
		cache:  rc,
		logger: logger.WithService("simulation_handler"),
	}
}

// SimulateRequest is the full simulation request body. Lineups usually
// come from a prior optimize call, but any valid roster is accepted.
type SimulateRequest struct {
	SlateRequest
	Lineups    []optimizer.Lineup `json:"lineups" binding:"required"`
	Simulation simulator.Config   `json:"simulation"`
}

// Simulate handles POST /api/v1/simulate.
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	if h.cache != nil {
		if key, err := cache.RequestKey(req); err == nil {
			if cached, hit, err := h.cache.GetSimulation(c.Request.Context(), key); err == nil && hit {
				utils.SendSuccess(c, cached)
				return
			}
		}
	}

	p := buildPool(c, &req.SlateRequest)
	if p == nil {
		return
	}
	m := buildCorrelation(c, p, &req.SlateRequest)
	if m == nil {
		return
	}

	simCfg := req.Simulation
	if simCfg.Workers == 0 {
		simCfg.Workers = h.cfg.SimulationWorkers
	}
	if simCfg.ChunkSize == 0 {
		simCfg.ChunkSize = h.cfg.SimChunkSize
	}
	if simCfg.MemoryBudgetBytes == 0 {
		simCfg.MemoryBudgetBytes = h.cfg.SimMemoryBudget
	}

	sim, err := simulator.New(p, m, simCfg, h.cfg.MaxTrials)
	if err != nil {
		sendEngineError(c, err)
		return
	}

	result, err := sim.Run(c.Request.Context(), req.Lineups)
	if err != nil {
		sendEngineError(c, err)
		return
	}
	logger.WithSimulationContext(result.RunID, result.TrialsRun, result.Seed).
		WithField("lineups", len(result.Lineups)).
		Info("Simulation request served")

	if h.cache != nil && !result.Cancelled {
		if key, err := cache.RequestKey(req); err == nil {
			if err := h.cache.SetSimulation(c.Request.Context(), key, result); err != nil {
				h.logger.WithError(err).Warn("Failed to cache simulation result")
			}
		}
	}

	utils.SendSuccess(c, result)
}
