package ledger

import "errors"

// Failure reasons surfaced by the ledger services. Every failure carries a
// distinct reason; there is no generic catch-all.

// Authorization failures.
var (
	ErrUnauthorized    = errors.New("unauthorized caller")
	ErrNotAuthorized   = errors.New("caller is not the holder or owner")
	ErrNotProgramOwner = errors.New("caller is not the program owner")
)

// Validation failures.
var (
	ErrOutOfRange       = errors.New("value out of range")
	ErrInvalidDuration  = errors.New("invalid loan duration")
	ErrInvalidRecipient = errors.New("invalid recipient address")
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// State-precondition failures.
var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyActive     = errors.New("an active record already exists")
	ErrAlreadyApproved   = errors.New("already approved")
	ErrAlreadyRepaid     = errors.New("already repaid")
	ErrNotApproved       = errors.New("not approved")
	ErrAlreadyConfigured = errors.New("binding already configured")
	ErrNonTransferable   = errors.New("record is non-transferable")
	ErrPaused            = errors.New("operations are paused")
	ErrPublishingPaused  = errors.New("publishing is paused")
	ErrReentrantCall     = errors.New("reentrant call")
)

// Freshness and trust failures. Time-dependent: the same input can succeed
// earlier or later.
var (
	ErrNoScore           = errors.New("no score published")
	ErrStaleScore        = errors.New("score is stale")
	ErrRateLimited       = errors.New("publish rate limit not elapsed")
	ErrOracleUnavailable = errors.New("score oracle not configured")
)

// Resource failures.
var (
	ErrInsufficientFunds      = errors.New("insufficient pool funds")
	ErrInsufficientBalance    = errors.New("insufficient token balance")
	ErrInsufficientAllowance  = errors.New("insufficient token allowance")
	ErrInsufficientReputation = errors.New("insufficient reputation points")
	ErrInsufficientScore      = errors.New("insufficient or unreadable score")
)
