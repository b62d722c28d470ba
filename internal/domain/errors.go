package domain

import "errors"

// Settlement error codes. Every settlement call that returns one of these has
// produced zero partial effect: no fund movement, no counter update.
var (
	// ErrPaused is returned when the marketplace or platform is paused.
	ErrPaused = errors.New("paused")

	// ErrNotActive is returned when the target listing, venue, or event is not active.
	ErrNotActive = errors.New("not active")

	// ErrAlreadyUsed is returned when creating a resource that already exists,
	// such as listing the same asset twice.
	ErrAlreadyUsed = errors.New("already used")

	// ErrExpired is returned when a listing's expiry has passed.
	ErrExpired = errors.New("expired")

	// ErrPriceCapExceeded is returned when a resale price exceeds 110% of the
	// original price, or a configured fee exceeds the 10% cap.
	ErrPriceCapExceeded = errors.New("price exceeds cap")

	// ErrInvalidTiming is returned for bad expiry/start/end ordering.
	ErrInvalidTiming = errors.New("invalid timing")

	// ErrUnauthorized is returned when the caller does not own the target resource.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMathOverflow is returned when checked arithmetic would overflow,
	// underflow, or divide by zero.
	ErrMathOverflow = errors.New("math overflow")

	// ErrReentrancyLocked is returned when a settlement is already in flight
	// for the target resource.
	ErrReentrancyLocked = errors.New("operation locked due to reentrancy")

	// ErrInsufficientCapacity is returned when a purchase would exceed event capacity.
	ErrInsufficientCapacity = errors.New("insufficient tickets")

	// ErrInsufficientFunds is returned when the payer cannot cover a transfer batch.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidQuantity is returned for a zero or over-limit batch quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidInput is returned for malformed names, addresses, or amounts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVenueNotVerified is returned when selling tickets for an unverified venue.
	ErrVenueNotVerified = errors.New("venue not verified")

	// ErrResaleNotAllowed is returned when listing a ticket for a non-resaleable event.
	ErrResaleNotAllowed = errors.New("resale not allowed")
)
