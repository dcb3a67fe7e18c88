package model

import "errors"

// Request errors are returned to the caller as typed rejections so a client
// can tell "try a smaller bet" apart from "round already started".
var (
	// validation
	ErrInvalidAmount     = errors.New("bet amount must be positive")
	ErrInvalidCurrency   = errors.New("unsupported currency")
	ErrInvalidMultiplier = errors.New("cashout multiplier must be at least 1")

	// state
	ErrRoundNotFound     = errors.New("round not found")
	ErrRoundNotPending   = errors.New("can only place bet during pending phase")
	ErrRoundNotActive    = errors.New("round not active")
	ErrNoCurrentRound    = errors.New("no active round")
	ErrDuplicateBet      = errors.New("player has already placed a bet in this round")
	ErrBetNotFound       = errors.New("no active bet")
	ErrAlreadyCashedOut  = errors.New("player has already cashed out")
	ErrMultiplierTooHigh = errors.New("requested multiplier exceeds current multiplier")

	// resource
	ErrPlayerNotFound      = errors.New("player not found")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// upstream
	ErrPriceUnavailable = errors.New("unable to fetch asset price")

	// integrity
	ErrDuplicateRoundID = errors.New("duplicate round id")
	ErrSeedNotRevealed  = errors.New("seed not revealed until round crashes")
)
