package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-engine/internal/optimizer"
	"github.com/stitts-dev/lineup-engine/internal/pool"
	"github.com/stitts-dev/lineup-engine/internal/portfolio"
	"github.com/stitts-dev/lineup-engine/internal/simulator"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
	"github.com/stitts-dev/lineup-engine/pkg/utils"
)

// PortfolioHandler serves exposure filtering requests.
type PortfolioHandler struct {
	logger *logrus.Entry
}

func NewPortfolioHandler() *PortfolioHandler {
	return &PortfolioHandler{logger: logger.WithService("portfolio_handler")}
}

// FilterRequest carries a simulated lineup batch through the portfolio
// quality gates.
type FilterRequest struct {
	Players    []pool.Player            `json:"players" binding:"required"`
	Lineups    []optimizer.Lineup       `json:"lineups" binding:"required"`
	Results    []simulator.LineupResult `json:"results,omitempty"`
	Targets    portfolio.Targets        `json:"targets,omitempty"`
	Thresholds portfolio.Thresholds     `json:"thresholds,omitempty"`
}

// Filter handles POST /api/v1/portfolio/filter.
func (h *PortfolioHandler) Filter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	p, err := pool.New(req.Players)
	if err != nil {
		utils.SendValidationError(c, "invalid player pool", err.Error())
		return
	}

	report, err := portfolio.Filter(p, req.Lineups, req.Results, req.Targets, req.Thresholds)
	if err != nil {
		utils.SendValidationError(c, "invalid portfolio filter request", err.Error())
		return
	}

	utils.SendSuccess(c, report)
}
