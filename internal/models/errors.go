package models

import "errors"

// Custom errors
var (
	// ErrInsufficientData indicates the primary subject of a computation has
	// fewer NAV points than the computation requires.
	ErrInsufficientData = errors.New("insufficient NAV history")

	// ErrNoBenchmarkData indicates the benchmark series is empty or unavailable
	// for the requested window.
	ErrNoBenchmarkData = errors.New("no benchmark data for window")

	// ErrNoInitialNav indicates a fund required for the initial allocation has
	// no resolvable NAV at the backtest start date.
	ErrNoInitialNav = errors.New("no resolvable NAV at start date")

	// ErrInvalidDateRange indicates the start date is not strictly before the
	// end date.
	ErrInvalidDateRange = errors.New("start date must be before end date")

	// ErrInvalidNavValue and ErrUnorderedSeries report NavSeries invariant
	// violations from a provider.
	ErrInvalidNavValue = errors.New("nav value must be positive")
	ErrUnorderedSeries = errors.New("nav dates must be strictly increasing")

	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
)
