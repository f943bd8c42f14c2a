package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-engine/internal/optimizer"
	"github.com/stitts-dev/lineup-engine/pkg/cache"
	"github.com/stitts-dev/lineup-engine/pkg/config"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
	"github.com/stitts-dev/lineup-engine/pkg/utils"
)

// OptimizationHandler serves lineup generation requests.
type OptimizationHandler struct {
	cfg    *config.Config
	cache  *cache.ResultCache
	logger *logrus.Entry
}

// NewOptimizationHandler creates the handler. cache may be nil when
// Redis is unavailable; requests are then always solved fresh.
func NewOptimizationHandler(cfg *config.Config, rc *cache.ResultCache) *OptimizationHandler {
	return &OptimizationHandler{
		cfg:    cfg,
		cache:  rc,
		logger: logger.WithService("optimization_handler"),
	}
}

// OptimizeRequest is the full lineup generation request body.
type OptimizeRequest struct {
	SlateRequest
	Constraints optimizer.Constraints     `json:"constraints"`
	NumLineups  int                       `json:"num_lineups" binding:"required"`
	Objective   optimizer.ObjectiveConfig `json:"objective"`
}

// Optimize handles POST /api/v1/optimize.
func (h *OptimizationHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}
	if req.NumLineups > h.cfg.MaxLineups {
		utils.SendValidationError(c, "too many lineups requested",
			"maximum per request is "+strconv.Itoa(h.cfg.MaxLineups))
		return
	}

	if h.cache != nil {
		if key, err := cache.RequestKey(req); err == nil {
			if cached, hit, err := h.cache.GetOptimization(c.Request.Context(), key); err == nil && hit {
				utils.SendSuccess(c, cached)
				return
			}
		}
	}

	p := buildPool(c, &req.SlateRequest)
	if p == nil {
		return
	}
	slots, err := optimizer.SlotsFor(req.Sport, req.Site)
	if err != nil {
		utils.SendValidationError(c, "unsupported sport/site", err.Error())
		return
	}

	cons := req.Constraints
	if cons.MinUnique == 0 {
		cons.MinUnique = h.cfg.DefaultMinUnique
	}
	cfg := optimizer.Config{
		NumLineups:   req.NumLineups,
		SolveTimeout: h.cfg.SolveTimeout,
		Objective:    req.Objective,
	}
	if cfg.Objective.Objective == "" {
		cfg.Objective.Objective = optimizer.ObjectiveProjection
	}

	opt, err := optimizer.New(p, slots, cons, cfg)
	if err != nil {
		sendEngineError(c, err)
		return
	}

	result, err := opt.Generate(c.Request.Context())
	if err != nil {
		sendEngineError(c, err)
		return
	}
	logger.WithRunContext(result.RunID, req.Sport, req.Site).WithFields(logrus.Fields{
		"delivered": result.Delivered,
		"reason":    result.Reason,
	}).Info("Optimization request served")

	if h.cache != nil && result.Reason == optimizer.ReasonComplete {
		if key, err := cache.RequestKey(req); err == nil {
			if err := h.cache.SetOptimization(c.Request.Context(), key, result); err != nil {
				h.logger.WithError(err).Warn("Failed to cache optimization result")
			}
		}
	}

	utils.SendSuccess(c, result)
}
