package models

import "errors"

var (
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInvalidTimestamp    = errors.New("invalid timestamp")
	ErrInvalidBar          = errors.New("invalid bar (high < low)")
	ErrInvalidVolume       = errors.New("invalid volume")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidPeriod       = errors.New("invalid history period")
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrInsufficientHistory = errors.New("insufficient historical data for technical analysis")
	ErrNoHoldings          = errors.New("holdings array is required")
	ErrInvalidQuery        = errors.New("search query is required")
	ErrInvalidLimit        = errors.New("invalid limit")
)
