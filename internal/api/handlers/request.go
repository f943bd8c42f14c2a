package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/lineup-engine/internal/correlation"
	"github.com/stitts-dev/lineup-engine/internal/optimizer"
	"github.com/stitts-dev/lineup-engine/internal/pool"
	"github.com/stitts-dev/lineup-engine/internal/simulator"
	"github.com/stitts-dev/lineup-engine/pkg/utils"
)

// SlateRequest is the shared slate portion of engine requests: the
// player pool plus optional explicit correlation overrides.
type SlateRequest struct {
	Sport        string              `json:"sport" binding:"required"`
	Site         string              `json:"site"`
	Players      []pool.Player       `json:"players" binding:"required"`
	Correlations []correlation.Entry `json:"correlations,omitempty"`

	// UseDefaultCorrelations layers the sport's teammate/opponent
	// defaults under any explicit entries.
	UseDefaultCorrelations bool `json:"use_default_correlations,omitempty"`
}

// buildPool validates the slate into a Pool, responding with a 400 on
// bad input. Returns nil after responding.
func buildPool(c *gin.Context, req *SlateRequest) *pool.Pool {
	p, err := pool.New(req.Players)
	if err != nil {
		utils.SendValidationError(c, "invalid player pool", err.Error())
		return nil
	}
	return p
}

// buildCorrelation assembles the correlation matrix for the slate,
// responding with a 400 on invalid entries. Returns nil after
// responding.
func buildCorrelation(c *gin.Context, p *pool.Pool, req *SlateRequest) *correlation.Matrix {
	entries := req.Correlations
	if req.UseDefaultCorrelations {
		// explicit entries win: defaults first, overrides after
		entries = append(correlation.DefaultEntries(p, req.Sport), req.Correlations...)
	}
	m, err := correlation.Build(p, entries)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest,
			utils.NewAppError(utils.ErrCodeCorrelation, "invalid correlation input", err.Error()))
		return nil
	}
	return m
}

// sendEngineError maps engine error types onto API error codes.
func sendEngineError(c *gin.Context, err error) {
	var (
		validation *pool.ValidationError
		corrErr    *correlation.InvalidCorrelationError
		consErr    *optimizer.ConstraintConfigError
		infeasible *optimizer.InfeasibleError
		timeout    *optimizer.TimeoutError
		simConfig  *simulator.ConfigError
		budget     *simulator.ResourceBudgetError
	)
	switch {
	case errors.As(err, &validation):
		utils.SendValidationError(c, "invalid player pool", err.Error())
	case errors.As(err, &corrErr):
		utils.SendError(c, http.StatusBadRequest,
			utils.NewAppError(utils.ErrCodeCorrelation, "invalid correlation input", err.Error()))
	case errors.As(err, &consErr):
		utils.SendError(c, http.StatusBadRequest,
			utils.NewAppError(utils.ErrCodeConstraintConfig, "invalid constraint configuration", err.Error()))
	case errors.As(err, &infeasible):
		utils.SendError(c, http.StatusUnprocessableEntity,
			utils.NewAppError(utils.ErrCodeInfeasible, "constraint system is infeasible", err.Error()))
	case errors.As(err, &timeout):
		utils.SendError(c, http.StatusRequestTimeout,
			utils.NewAppError(utils.ErrCodeTimeout, "solve exceeded its time budget", err.Error()))
	case errors.As(err, &simConfig):
		utils.SendValidationError(c, "invalid simulation configuration", err.Error())
	case errors.As(err, &budget):
		utils.SendError(c, http.StatusUnprocessableEntity,
			utils.NewAppError(utils.ErrCodeResourceBudget, "simulation exceeds memory budget", err.Error()))
	default:
		utils.SendInternalError(c, err.Error())
	}
}
