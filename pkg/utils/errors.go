package utils

// AppError is the wire-level error shape returned by the API.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeConstraintConfig = "CONSTRAINT_CONFIG_ERROR"
	ErrCodeInfeasible       = "INFEASIBLE"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeResourceBudget   = "RESOURCE_BUDGET_EXCEEDED"
	ErrCodeCorrelation      = "INVALID_CORRELATION"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

func NewAppError(code, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}
