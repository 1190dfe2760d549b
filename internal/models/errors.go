package models

import "errors"

// ErrorKind classifies domain failures for the transport layer
type ErrorKind string

const (
	KindValidation ErrorKind = "validation_error"
	KindAuth       ErrorKind = "unauthorized"
	KindForbidden  ErrorKind = "forbidden"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindDuplicate  ErrorKind = "duplicate"
	KindSearch     ErrorKind = "search_error"
)

// DomainError is a user-recoverable failure carrying a stable code
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrDuplicateUsername = &DomainError{Kind: KindDuplicate, Code: "DUPLICATE_USERNAME", Message: "Username already exists"}
	ErrDuplicateEmail    = &DomainError{Kind: KindDuplicate, Code: "DUPLICATE_EMAIL", Message: "Email already registered"}

	ErrInvalidCredentials = &DomainError{Kind: KindAuth, Code: "INVALID_CREDENTIALS", Message: "Invalid username or password"}
	ErrSessionExpired     = &DomainError{Kind: KindAuth, Code: "TOKEN_EXPIRED", Message: "Session has expired, please log in again"}
	ErrInvalidSession     = &DomainError{Kind: KindAuth, Code: "INVALID_TOKEN", Message: "Invalid or revoked session"}
	ErrForbidden          = &DomainError{Kind: KindForbidden, Code: "INSUFFICIENT_PERMISSIONS", Message: "You don't have permission to access this resource"}
	ErrNotOwner           = &DomainError{Kind: KindForbidden, Code: "NOT_RESERVATION_OWNER", Message: "Reservation belongs to another user"}

	ErrAlreadyParked     = &DomainError{Kind: KindConflict, Code: "ALREADY_PARKED", Message: "You already have an active parking reservation"}
	ErrLotFull           = &DomainError{Kind: KindConflict, Code: "LOT_FULL", Message: "No available spots in this parking lot"}
	ErrLotOccupied       = &DomainError{Kind: KindConflict, Code: "LOT_OCCUPIED", Message: "Cannot delete parking lot with occupied spots"}
	ErrReservationClosed = &DomainError{Kind: KindConflict, Code: "RESERVATION_CLOSED", Message: "Reservation has already been released"}

	ErrLotNotFound         = &DomainError{Kind: KindNotFound, Code: "LOT_NOT_FOUND", Message: "Parking lot not found"}
	ErrReservationNotFound = &DomainError{Kind: KindNotFound, Code: "RESERVATION_NOT_FOUND", Message: "Reservation not found"}

	ErrInvalidSearchQuery = &DomainError{Kind: KindValidation, Code: "INVALID_SEARCH_QUERY", Message: "Please enter a valid search query"}
	ErrSearchFailed       = &DomainError{Kind: KindSearch, Code: "SEARCH_FAILED", Message: "Search failed, please try again"}
)

// NewValidationError builds a validation failure with a custom message
func NewValidationError(message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: message}
}

// AsDomainError extracts a DomainError from err's chain
func AsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// NewSearchError builds a search failure that hides the storage cause from callers
func NewSearchError(message string) *DomainError {
	if message == "" {
		message = ErrSearchFailed.Message
	}
	return &DomainError{Kind: KindSearch, Code: ErrSearchFailed.Code, Message: message}
}
