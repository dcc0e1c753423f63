package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes for everything the game API can throw at us. Ship actors
// branch on these with errors.Is rather than looking at status codes.
var (
	ErrRateLimited       = errors.New("rate limited")
	ErrCooldownActive    = errors.New("cooldown active")
	ErrCargoFull         = errors.New("insufficient cargo space")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state for action")
	ErrTransient         = errors.New("transient server error")
	ErrNotFound          = errors.New("not found")
)

// Error is a classified failure response from the game API.
type Error struct {
	Status  int
	Code    int
	Message string
	class   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d (code %d): %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.class }

// Game error codes that need distinct handling. Anything unlisted falls back
// to classification by HTTP status.
const (
	codeCooldownConflict   = 4000
	codeShipInTransit      = 4214
	codePurchaseCredits    = 4216
	codeCargoExceedsLimit  = 4217
	codeCargoFull          = 4228
	codeMarketInsufficient = 4600
)

func classify(status, code int, message string) *Error {
	e := &Error{Status: status, Code: code, Message: message}
	switch code {
	case codeCooldownConflict:
		e.class = ErrCooldownActive
		return e
	case codeCargoFull, codeCargoExceedsLimit:
		e.class = ErrCargoFull
		return e
	case codePurchaseCredits, codeMarketInsufficient:
		e.class = ErrInsufficientFunds
		return e
	case codeShipInTransit:
		e.class = ErrInvalidState
		return e
	}
	switch {
	case status == http.StatusTooManyRequests:
		e.class = ErrRateLimited
	case status == http.StatusNotFound:
		e.class = ErrNotFound
	case status >= 500:
		e.class = ErrTransient
	default:
		// 400/409/422 without a known code: our picture of the ship is stale
		e.class = ErrInvalidState
	}
	return e
}

// Retryable reports whether the action can be repeated as-is after a backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// StaleState reports failures meaning our local ship state is out of date and
// should be refreshed before deciding again.
func StaleState(err error) bool {
	return errors.Is(err, ErrCooldownActive) || errors.Is(err, ErrInvalidState)
}

// PolicyOutcome reports failures that are not errors at all but information
// for the strategy: pick a different action.
func PolicyOutcome(err error) bool {
	return errors.Is(err, ErrCargoFull) || errors.Is(err, ErrInsufficientFunds)
}
