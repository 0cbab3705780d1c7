package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidQuery    = 1003
	ErrCodeInvalidID       = 1004
	ErrCodeMissingRequired = 1009
	ErrCodeInvalidRef      = 1015
	ErrCodeInvalidAction   = 1016

	// Domain state (2xxx)
	ErrCodeProjectNotFound      = 2001
	ErrCodeAssetNotFound        = 2003
	ErrCodeResolutionNotFound   = 2005
	ErrCodeObjectNotFound       = 2006
	ErrCodeNotificationNotFound = 2007
	ErrCodeConflict             = 2102
	ErrCodeNothingPending       = 2103
	ErrCodeRetryUnavailable     = 2104

	// Limits (3xxx)
	ErrCodeResourceExhausted = 3003
	ErrCodeQuotaExceeded     = 3004

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeNotImplemented = 4005
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeProjectNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeQuotaExceeded
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	default:
		return 0
	}
}
