package criteria

import (
	"context"
	"fmt"

	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/pit"
)

const (
	NameNotInWatchlist       = "NotInWatchlist"
	NameShrinkingVolumeStall = "ShrinkingVolumeStall"
	NameDropWithLowVolume    = "DropWithLowVolume"
)

// SellCriteria returns the exit rules in evaluation order. The first one
// that passes sells the whole position.
func SellCriteria() []Criterion {
	return []Criterion{
		NotInWatchlist{},
		ShrinkingVolumeStall{},
		DropWithLowVolume{},
	}
}

func isNoData(err error) bool { return pit.IsNoData(err) }

// NotInWatchlist exits names dropped from the watch list once the exit
// test fires.
type NotInWatchlist struct{}

func (NotInWatchlist) Name() string { return NameNotInWatchlist }

func (NotInWatchlist) Evaluate(ctx context.Context, env *Env) Outcome {
	in, err := env.View.InWatchlist(ctx, env.Code)
	if err != nil {
		return Errorf(err, "reading watch list")
	}
	if in {
		return Fail("still on the watch list", nil)
	}
	fire, ev, err := exitTest(ctx, env)
	if err != nil {
		return fromErr(err, "exit quote")
	}
	if fire {
		return Pass("off the watch list, "+exitReason(ev, env.Params.ExitRatio), ev)
	}
	return Fail("off the watch list but no exit signal", ev)
}

type StallEvidence struct {
	Volumes []int64      `json:"volumes"`
	BaseDay string       `json:"base_date"`
	Gain    string       `json:"gain_pct"`
	Exit    ExitEvidence `json:"exit"`
}

// ShrinkingVolumeStall exits after two sessions of falling volume when the
// price has gone nowhere since two sessions ago.
type ShrinkingVolumeStall struct{}

func (ShrinkingVolumeStall) Name() string { return NameShrinkingVolumeStall }

func (ShrinkingVolumeStall) Evaluate(ctx context.Context, env *Env) Outcome {
	bars, err := env.View.BarsBefore(ctx, env.Code, market.Daily, 3)
	if err != nil {
		return fromErr(err, "daily bars")
	}
	if len(bars) < 3 {
		return Fail(fmt.Sprintf("only %d daily bars", len(bars)), nil)
	}
	// bars are T-3, T-2, T-1
	v3, v2, v1 := bars[0].Volume, bars[1].Volume, bars[2].Volume
	ev := StallEvidence{Volumes: []int64{v3, v2, v1}, BaseDay: bars[1].Date}
	if !(v1 < v2 && v2 < v3) {
		return Fail("volume not shrinking", ev)
	}

	fire, exit, err := exitTest(ctx, env)
	if err != nil {
		return fromErr(err, "exit quote")
	}
	ev.Exit = exit
	if gain, ok := market.RiseOver(exit.Ratio.Price, bars[1].Close); ok {
		ev.Gain = pct(gain)
		if gain.GreaterThanOrEqual(env.Params.MaxStallGain) {
			return Fail("gain since "+ev.BaseDay+" is "+ev.Gain+"%", ev)
		}
	}
	if fire {
		return Pass("shrinking volume stall, "+exitReason(exit, env.Params.ExitRatio), ev)
	}
	return Fail("shrinking volume but no exit signal", ev)
}

// DropWithLowVolume exits a name trading under the prior close on thin
// volume.
type DropWithLowVolume struct{}

func (DropWithLowVolume) Name() string { return NameDropWithLowVolume }

func (DropWithLowVolume) Evaluate(ctx context.Context, env *Env) Outcome {
	r, err := VolumeRatio(ctx, env)
	if err != nil {
		return fromErr(err, "volume ratio")
	}
	if r.Price.LessThan(r.PreClose) && r.Ratio < env.Params.DropVolumeRatio {
		return Pass(fmt.Sprintf("price %s under %s on ratio %.2f", r.Price, r.PreClose, r.Ratio), r)
	}
	return Fail(fmt.Sprintf("price %s, ratio %.2f", r.Price, r.Ratio), r)
}

func exitReason(ev ExitEvidence, limit float64) string {
	if ev.GapUp && !ev.LimitUp {
		return "gapped up without limit-up"
	}
	return fmt.Sprintf("volume ratio %.2f at or below %.2f", ev.Ratio.Ratio, limit)
}
