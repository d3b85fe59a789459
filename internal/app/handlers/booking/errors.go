package booking

import "errors"

var (
	ErrGuestsExceedCapacity = errors.New("booking: number of guests exceeds maximum allowed")
	ErrNotAuthorized        = errors.New("booking: not authorized to access this booking")
)
