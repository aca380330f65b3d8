package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSignal        ErrorCode = 102
	ErrCodeInvalidWindow        ErrorCode = 103
	ErrCodeInsufficientData     ErrorCode = 104
	ErrCodeInvalidPeriod        ErrorCode = 105
	ErrCodeMissingParameter     ErrorCode = 106
	ErrCodeInvalidVersion       ErrorCode = 107

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound      ErrorCode = 400
	ErrCodeStrategyConfigError   ErrorCode = 401
	ErrCodeStrategyAlreadyExists ErrorCode = 402
	ErrCodeConditionFailed       ErrorCode = 403
	ErrCodeVersionMismatch       ErrorCode = 404

	// Execution errors (500-599)
	ErrCodeSizingFailed      ErrorCode = 500
	ErrCodePositionNotFound  ErrorCode = 501
	ErrCodeExecutionRejected ErrorCode = 502

	// Market data errors (600-699)
	ErrCodeMarketDataFetchFailed ErrorCode = 600
	ErrCodeWriteFailed           ErrorCode = 601
	ErrCodeParseFailed           ErrorCode = 602
	ErrCodeInvalidTimespan       ErrorCode = 603
	ErrCodeInvalidProvider       ErrorCode = 604
)
