package criteria

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/risk"
)

// Params are the strategy thresholds.
type Params struct {
	// AllowPriorDayRebuy lets AlreadyHeld pass for a position whose last
	// buy was on an earlier session.
	AllowPriorDayRebuy bool

	AuctionEnd string

	StrongPeerRise  decimal.Decimal
	MinStrongTheme1 int
	MinStrongTheme2 int
	TopPeers        int

	MaxHeldPerTheme int

	VolumeBars        int
	MinVolumeBars     int
	ContractionFactor float64
	MinExpansionDays  int
	MaxContractDays   int
	BigBarRise        decimal.Decimal

	MinVolumeRatio float64

	MinPreopenRatio float64
	MaxPreopenRise  decimal.Decimal

	MaxStallGain    decimal.Decimal
	ExitRatio       float64
	DropVolumeRatio float64

	Sizing risk.Policy
}

func DefaultParams() Params {
	return Params{
		AllowPriorDayRebuy: true,
		AuctionEnd:         "09:30:00",

		StrongPeerRise:  decimal.RequireFromString("0.095"),
		MinStrongTheme1: 1,
		MinStrongTheme2: 2,
		TopPeers:        5,

		MaxHeldPerTheme: 2,

		VolumeBars:        5,
		MinVolumeBars:     3,
		ContractionFactor: 0.88,
		MinExpansionDays:  2,
		MaxContractDays:   2,
		BigBarRise:        decimal.RequireFromString("0.07"),

		MinVolumeRatio: 1.2,

		MinPreopenRatio: 0.01,
		MaxPreopenRise:  decimal.RequireFromString("0.07"),

		MaxStallGain:    decimal.RequireFromString("0.07"),
		ExitRatio:       0.8,
		DropVolumeRatio: 0.5,

		Sizing: risk.DefaultPolicy(),
	}
}
