package services

import "errors"

// Outcomes of code and claim operations. Handlers map these to responses;
// any other error is an internal fault.
var (
	ErrInvalidFormat      = errors.New("invalid code format")
	ErrPostQuotaExceeded  = errors.New("daily post limit reached")
	ErrDuplicateCoreCode  = errors.New("this code is already listed")
	ErrDuplicateID        = errors.New("a code with this id already exists")
	ErrCodeNotFound       = errors.New("code not found")
	ErrCodeExhausted      = errors.New("code has no uses left")
	ErrSelfClaim          = errors.New("cannot claim your own code")
	ErrClaimQuotaExceeded = errors.New("daily claim limit reached")
	ErrAlreadyClaimed     = errors.New("you have already claimed this code")
	ErrClaimSystemBusy    = errors.New("system busy, please retry")
)

var claimRejections = []error{
	ErrCodeNotFound,
	ErrCodeExhausted,
	ErrSelfClaim,
	ErrClaimQuotaExceeded,
	ErrAlreadyClaimed,
}

func isClaimRejection(err error) bool {
	for _, target := range claimRejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
