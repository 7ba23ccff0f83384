package criteria

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/pit"
)

// RatioEvidence describes a same-clock volume comparison with the prior
// session.
type RatioEvidence struct {
	Ratio     float64         `json:"ratio"`
	Volume    int64           `json:"volume"`
	PrevDate  string          `json:"prev_date"`
	PrevClock string          `json:"prev_clock"`
	PrevVol   int64           `json:"prev_volume"`
	TickTime  string          `json:"tick_time"`
	Price     decimal.Decimal `json:"price"`
	Open      decimal.Decimal `json:"open"`
	PreClose  decimal.Decimal `json:"pre_close"`
}

// VolumeRatio compares the latest tick's cumulative volume with the volume
// the prior session had traded by the same clock. The prior session's
// cut-off is its first 5-minute bar ending at or after the tick's time, or
// its last bar. The result is memoised on env.
func VolumeRatio(ctx context.Context, env *Env) (RatioEvidence, error) {
	if env.ratio != nil || env.ratioErr != nil {
		if env.ratioErr != nil {
			return RatioEvidence{}, env.ratioErr
		}
		return *env.ratio, nil
	}
	r, err := volumeRatio(ctx, env)
	if err != nil {
		env.ratioErr = err
		return RatioEvidence{}, err
	}
	env.ratio = &r
	return r, nil
}

func volumeRatio(ctx context.Context, env *Env) (RatioEvidence, error) {
	v := env.View
	tick, err := v.LatestTick(ctx, env.Code)
	if err != nil {
		return RatioEvidence{}, err
	}
	prev, err := v.PrevSessionDate(ctx, env.Code, market.FiveMinute)
	if err != nil {
		return RatioEvidence{}, err
	}
	bars, err := v.BarsOn(ctx, env.Code, prev, market.FiveMinute)
	if err != nil {
		return RatioEvidence{}, err
	}

	target := bars[len(bars)-1].Time
	for _, b := range bars {
		if b.Time >= tick.Time {
			target = b.Time
			break
		}
	}
	var y int64
	for _, b := range bars {
		if b.Time <= target {
			y += b.Volume
		}
	}
	if y <= 0 {
		return RatioEvidence{}, fmt.Errorf("%s volume by %s on %s is zero: %w", env.Code, target, prev, pit.ErrNoData)
	}

	return RatioEvidence{
		Ratio:     float64(tick.Volume) / float64(y),
		Volume:    tick.Volume,
		PrevDate:  prev,
		PrevClock: target,
		PrevVol:   y,
		TickTime:  tick.Time,
		Price:     tick.Price(),
		Open:      tick.Open,
		PreClose:  tick.PreClose,
	}, nil
}

// ExitEvidence records why the exit test fired or not.
type ExitEvidence struct {
	GapUp   bool          `json:"gap_up"`
	LimitUp bool          `json:"limit_up"`
	Ratio   RatioEvidence `json:"ratio"`
}

// exitTest fires when the session opened above the prior close without
// being locked at limit-up, or when the volume ratio has faded to
// ExitRatio or below.
func exitTest(ctx context.Context, env *Env) (bool, ExitEvidence, error) {
	r, err := VolumeRatio(ctx, env)
	if err != nil {
		return false, ExitEvidence{}, err
	}
	ev := ExitEvidence{
		GapUp:   r.Open.GreaterThan(r.PreClose),
		LimitUp: market.IsLimitUp(env.Code, env.Name, r.Price, r.PreClose),
		Ratio:   r,
	}
	if ev.GapUp && !ev.LimitUp {
		return true, ev, nil
	}
	return r.Ratio <= env.Params.ExitRatio, ev, nil
}
