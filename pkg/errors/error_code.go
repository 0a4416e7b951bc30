package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidInstrument    ErrorCode = 104
	ErrCodeInvalidQuantity      ErrorCode = 105
	ErrCodeInvalidSessionWindow ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeInsufficientData     ErrorCode = 200
	ErrCodeNoDataFound          ErrorCode = 201
	ErrCodeQuoteUnavailable     ErrorCode = 202
	ErrCodeHistoricalDataFailed ErrorCode = 203
	ErrCodeInstrumentNotFound   ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300
	ErrCodeIndicatorUnavailable ErrorCode = 301

	// Trading errors (500-599)
	ErrCodeOrderFailed      ErrorCode = 500
	ErrCodeOrderRejected    ErrorCode = 501
	ErrCodeOrderNotFound    ErrorCode = 502
	ErrCodePositionNotFound ErrorCode = 503
	ErrCodeEntrySuppressed  ErrorCode = 504

	// Broker/transport errors (700-799)
	ErrCodeBrokerUnavailable ErrorCode = 700
	ErrCodeRateLimited       ErrorCode = 701
	ErrCodeRequestFailed     ErrorCode = 702
	ErrCodeResponseMalformed ErrorCode = 703
	ErrCodeStreamClosed      ErrorCode = 704
	ErrCodeRequestRejected   ErrorCode = 705

	// Authentication errors (900-999)
	ErrCodeAuthFailed     ErrorCode = 900
	ErrCodeSessionExpired ErrorCode = 901
)

// IsAuthCode reports whether the code identifies an authentication failure.
// Auth failures are the only error class the engine treats as fatal.
func IsAuthCode(code ErrorCode) bool {
	return code >= 900 && code <= 999
}

// IsTransientCode reports whether the code identifies a transient transport
// failure that order placement and bar fetching may retry.
func IsTransientCode(code ErrorCode) bool {
	switch code {
	case ErrCodeBrokerUnavailable, ErrCodeRateLimited, ErrCodeRequestFailed:
		return true
	default:
		return false
	}
}
