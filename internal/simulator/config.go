package simulator

import (
	"fmt"
	"runtime"
)

// Distribution selects the marginal outcome model for player scores.
type Distribution string

const (
	// DistributionNormal draws jointly normal scores, clamped at zero.
	// The clamp slightly biases low-projection players upward; the
	// lognormal model avoids that at the cost of a heavier right tail.
	DistributionNormal Distribution = "normal"
	// DistributionLognormal draws moment-matched lognormal marginals
	// coupled through the correlation structure.
	DistributionLognormal Distribution = "lognormal"
)

// Config controls one simulation run. Zero values for Workers and
// ChunkSize are filled from the environment at validation.
type Config struct {
	Trials            int          `json:"trials"`
	Seed              int64        `json:"seed"`
	Distribution      Distribution `json:"distribution"`
	Workers           int          `json:"workers,omitempty"`
	ChunkSize         int          `json:"chunk_size,omitempty"`
	MemoryBudgetBytes int64        `json:"memory_budget_bytes,omitempty"`
	TargetScore       float64      `json:"target_score,omitempty"`
	FieldSize         int          `json:"field_size,omitempty"`
	EntryFee          float64      `json:"entry_fee,omitempty"`
	PrizePool         float64      `json:"prize_pool,omitempty"`
}

// ConfigError reports an invalid simulation configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid simulation configuration: %s", e.Reason)
}

// ResourceBudgetError reports that a run would exceed its declared
// memory budget. Callers should lower the trial count, chunk size, or
// worker count rather than retry.
type ResourceBudgetError struct {
	NeededBytes int64
	BudgetBytes int64
}

func (e *ResourceBudgetError) Error() string {
	return fmt.Sprintf("simulation needs %d bytes against budget of %d", e.NeededBytes, e.BudgetBytes)
}

func (c *Config) validate(maxTrials int) error {
	if c.Trials <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("trials must be positive, got %d", c.Trials)}
	}
	if maxTrials > 0 && c.Trials > maxTrials {
		return &ConfigError{Reason: fmt.Sprintf("trials %d exceed maximum %d", c.Trials, maxTrials)}
	}
	switch c.Distribution {
	case DistributionNormal, DistributionLognormal:
	case "":
		c.Distribution = DistributionNormal
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown distribution %q", c.Distribution)}
	}
	if c.Workers < 0 || c.ChunkSize < 0 {
		return &ConfigError{Reason: "workers and chunk size must be non-negative"}
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 2048
	}
	if c.ChunkSize > c.Trials {
		c.ChunkSize = c.Trials
	}
	if c.FieldSize < 0 {
		return &ConfigError{Reason: "field size must be non-negative"}
	}
	if c.EntryFee < 0 || c.PrizePool < 0 {
		return &ConfigError{Reason: "entry fee and prize pool must be non-negative"}
	}
	return nil
}
