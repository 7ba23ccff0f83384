package criteria

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/market"
)

// Criterion names, as recorded in the audit trail.
const (
	NameAlreadyHeld              = "AlreadyHeld"
	NamePriorDayOneWordBoard     = "PriorDayOneWordBoard"
	NamePriorDayMainForceNetLift = "PriorDayMainForceNetLift"
	NameSectorPeerStrength       = "SectorPeerStrength"
	NameSectorConcentrationLimit = "SectorConcentrationLimit"
	NameVolumeHealth             = "VolumeHealth"
	NamePriorDayVolumeRatio      = "PriorDayVolumeRatioVsYesterday"
	NamePreopenRiseBound         = "PreopenRiseBound"
	NamePositionSizing           = "PositionSizing"
)

// BuyCriteria returns the entry rules in evaluation order. PositionSizing
// is last and reads evidence left by SectorPeerStrength and
// PreopenRiseBound.
func BuyCriteria() []Criterion {
	return []Criterion{
		AlreadyHeld{},
		PriorDayOneWordBoard{},
		PriorDayMainForceNetLift{},
		SectorPeerStrength{},
		SectorConcentrationLimit{},
		VolumeHealth{},
		PriorDayVolumeRatio{},
		PreopenRiseBound{},
		PositionSizing{},
	}
}

// AlreadyHeld blocks a second entry on the same session. Whether an
// earlier session's position may be added to is Params.AllowPriorDayRebuy.
type AlreadyHeld struct{}

func (AlreadyHeld) Name() string { return NameAlreadyHeld }

func (AlreadyHeld) Evaluate(ctx context.Context, env *Env) Outcome {
	pos, err := env.Positions.Position(ctx, env.Code)
	if err != nil {
		return Errorf(err, "reading position")
	}
	if !pos.Held() {
		return Pass("no position", nil)
	}
	ev := map[string]any{"quantity": pos.Quantity, "last_buy_date": pos.LastBuyDate}
	if pos.LastBuyDate == env.Date() {
		return Fail("bought today", ev)
	}
	if !env.Params.AllowPriorDayRebuy {
		return Fail("already held", ev)
	}
	return Pass("held since "+pos.OpenedDate+", re-entry allowed", ev)
}

// PriorDayOneWordBoard rejects names whose prior session never traded off
// a single price.
type PriorDayOneWordBoard struct{}

func (PriorDayOneWordBoard) Name() string { return NamePriorDayOneWordBoard }

func (PriorDayOneWordBoard) Evaluate(ctx context.Context, env *Env) Outcome {
	bar, err := env.View.LatestDaily(ctx, env.Code)
	if err != nil {
		return fromErr(err, "prior daily bar")
	}
	ev := map[string]any{"date": bar.Date, "high": bar.High, "low": bar.Low}
	if bar.High.Equal(bar.Low) {
		return Fail("prior day was a one-word board", ev)
	}
	return Pass("prior day traded a range", ev)
}

type MomentumEvidence struct {
	Date     string `json:"date"`
	Lift     int    `json:"lift"`
	Dump     int    `json:"dump"`
	Last     string `json:"last,omitempty"`
	LastTime string `json:"last_time,omitempty"`
}

// PriorDayMainForceNetLift wants main-force buying on the prior session:
// net lifts of at least one, or two lifts regardless of dumps.
type PriorDayMainForceNetLift struct{}

func (PriorDayMainForceNetLift) Name() string { return NamePriorDayMainForceNetLift }

func (PriorDayMainForceNetLift) Evaluate(ctx context.Context, env *Env) Outcome {
	bar, err := env.View.LatestDaily(ctx, env.Code)
	if err != nil {
		return fromErr(err, "prior daily bar")
	}
	tags, err := env.View.MomentumTags(ctx, env.Code, bar.Date)
	if err != nil {
		return fromErr(err, "momentum tags")
	}
	ev := MomentumEvidence{Date: bar.Date}
	for _, t := range tags {
		switch t.Action {
		case market.MainLift:
			ev.Lift++
		case market.MainDump:
			ev.Dump++
		default:
			continue
		}
		ev.Last, ev.LastTime = string(t.Action), t.Time
	}
	if ev.Lift-ev.Dump >= 1 || ev.Lift >= 2 {
		return Pass(fmt.Sprintf("lift %d dump %d", ev.Lift, ev.Dump), ev)
	}
	return Fail(fmt.Sprintf("no main-force lift (lift %d dump %d)", ev.Lift, ev.Dump), ev)
}

type PeerRise struct {
	Code string          `json:"code"`
	Name string          `json:"name,omitempty"`
	Rise decimal.Decimal `json:"rise"`
}

// PeerStrength is the sector read-out used by sizing and the concentration
// limit.
type PeerStrength struct {
	Themes  market.Themes `json:"themes"`
	Strong1 int           `json:"strong1"`
	Strong2 int           `json:"strong2"`
	Top1    []PeerRise    `json:"top1,omitempty"`
	Top2    []PeerRise    `json:"top2,omitempty"`
}

// Count is the peer-strength count that drives sizing.
func (p PeerStrength) Count() int { return p.Strong1 + p.Strong2 }

// SectorPeerStrength looks for limit-chasing peers in the auction: at least
// one strong peer in the primary theme or two in the secondary.
type SectorPeerStrength struct{}

func (SectorPeerStrength) Name() string { return NameSectorPeerStrength }

func (SectorPeerStrength) Evaluate(ctx context.Context, env *Env) Outcome {
	themes, err := env.View.Themes(ctx, env.Code)
	if err != nil {
		return fromErr(err, "themes")
	}
	ev := PeerStrength{Themes: themes.Top2()}

	count := func(theme string) (int, []PeerRise, error) {
		peers, err := env.View.ThemePeers(ctx, theme, env.Code)
		if err != nil {
			return 0, nil, err
		}
		strong := 0
		var rises []PeerRise
		for _, peer := range peers {
			tick, err := env.View.TickAtOrBefore(ctx, peer, env.Params.AuctionEnd)
			if err != nil {
				if isNoData(err) {
					continue
				}
				return 0, nil, err
			}
			rise, ok := tick.Rise()
			if !ok {
				continue
			}
			rises = append(rises, PeerRise{Code: peer, Name: tick.Name, Rise: rise})
			if rise.GreaterThanOrEqual(env.Params.StrongPeerRise) {
				strong++
			}
		}
		sort.SliceStable(rises, func(i, j int) bool { return rises[i].Rise.GreaterThan(rises[j].Rise) })
		if n := env.Params.TopPeers; n > 0 && len(rises) > n {
			rises = rises[:n]
		}
		return strong, rises, nil
	}

	if ev.Strong1, ev.Top1, err = count(themes.Primary()); err != nil {
		return Errorf(err, "counting peers of %s", themes.Primary())
	}
	if ev.Strong2, ev.Top2, err = count(themes.Secondary()); err != nil {
		return Errorf(err, "counting peers of %s", themes.Secondary())
	}

	reason := fmt.Sprintf("%s: %d strong, %s: %d strong", themes.Primary(), ev.Strong1, themes.Secondary(), ev.Strong2)
	if ev.Strong1 >= env.Params.MinStrongTheme1 || ev.Strong2 >= env.Params.MinStrongTheme2 {
		return Pass(reason, ev)
	}
	return Fail("no strong peers ("+reason+")", ev)
}

// SectorConcentrationLimit caps how many held names may share the
// candidate's top two themes.
type SectorConcentrationLimit struct{}

func (SectorConcentrationLimit) Name() string { return NameSectorConcentrationLimit }

func (SectorConcentrationLimit) Evaluate(ctx context.Context, env *Env) Outcome {
	var themes market.Themes
	if ps, ok := evidenceOf[PeerStrength](env, NameSectorPeerStrength); ok {
		themes = ps.Themes
	} else {
		t, err := env.View.Themes(ctx, env.Code)
		if err != nil {
			return fromErr(err, "themes")
		}
		themes = t.Top2()
	}

	held, err := env.Positions.HeldPositions(ctx)
	if err != nil {
		return Errorf(err, "reading held positions")
	}
	var same []string
	for _, p := range held {
		if p.Code == env.Code {
			continue
		}
		pt, err := env.View.Themes(ctx, p.Code)
		if err != nil {
			if isNoData(err) {
				continue
			}
			return Errorf(err, "reading themes of %s", p.Code)
		}
		if themes.SharesTop2(pt) {
			same = append(same, p.Code)
		}
	}
	ev := map[string]any{"themes": themes, "held_same_theme": same}
	if len(same) >= env.Params.MaxHeldPerTheme {
		return Fail(fmt.Sprintf("%d held names share its themes", len(same)), ev)
	}
	return Pass(fmt.Sprintf("%d held names share its themes", len(same)), ev)
}

type VolumeEvidence struct {
	Volumes    []int64          `json:"volumes"`
	Expansions int              `json:"expansions"`
	Contracts  int              `json:"contractions"`
	BigBarDate string           `json:"big_bar_date,omitempty"`
	BigBarOpen *decimal.Decimal `json:"big_bar_open,omitempty"`
	LastClose  decimal.Decimal  `json:"last_close"`
}

// VolumeHealth wants volume building over the last sessions without heavy
// contraction, and price holding above the open of any recent big up bar.
type VolumeHealth struct{}

func (VolumeHealth) Name() string { return NameVolumeHealth }

func (VolumeHealth) Evaluate(ctx context.Context, env *Env) Outcome {
	p := env.Params
	bars, err := env.View.BarsBefore(ctx, env.Code, market.Daily, p.VolumeBars)
	if err != nil {
		return fromErr(err, "daily bars")
	}
	if len(bars) < p.MinVolumeBars {
		return Fail(fmt.Sprintf("only %d daily bars", len(bars)), nil)
	}

	ev := VolumeEvidence{LastClose: bars[len(bars)-1].Close}
	for i, b := range bars {
		ev.Volumes = append(ev.Volumes, b.Volume)
		if i == 0 {
			continue
		}
		prev := float64(bars[i-1].Volume)
		cur := float64(b.Volume)
		if cur > prev {
			ev.Expansions++
		}
		if cur < p.ContractionFactor*prev {
			ev.Contracts++
		}
	}
	if ev.Expansions < p.MinExpansionDays || ev.Contracts > p.MaxContractDays {
		return Fail(fmt.Sprintf("volume expanded %d and contracted %d days", ev.Expansions, ev.Contracts), ev)
	}

	for i := len(bars) - 1; i >= 0; i-- {
		b := bars[i]
		if !b.Close.GreaterThan(b.Open) || !b.Open.IsPositive() {
			continue
		}
		if b.Close.Sub(b.Open).Div(b.Open).GreaterThanOrEqual(p.BigBarRise) {
			open := b.Open
			ev.BigBarDate, ev.BigBarOpen = b.Date, &open
			break
		}
	}
	if ev.BigBarOpen != nil && ev.LastClose.LessThan(*ev.BigBarOpen) {
		return Fail(fmt.Sprintf("close %s broke the %s big bar open %s", ev.LastClose, ev.BigBarDate, ev.BigBarOpen), ev)
	}
	return Pass(fmt.Sprintf("volume expanded %d and contracted %d days", ev.Expansions, ev.Contracts), ev)
}

// PriorDayVolumeRatio wants today's volume ahead of the prior session's
// at the same clock.
type PriorDayVolumeRatio struct{}

func (PriorDayVolumeRatio) Name() string { return NamePriorDayVolumeRatio }

func (PriorDayVolumeRatio) Evaluate(ctx context.Context, env *Env) Outcome {
	r, err := VolumeRatio(ctx, env)
	if err != nil {
		return fromErr(err, "volume ratio")
	}
	if r.Ratio >= env.Params.MinVolumeRatio {
		return Pass(fmt.Sprintf("volume ratio %.2f", r.Ratio), r)
	}
	return Fail(fmt.Sprintf("volume ratio %.2f below %.2f", r.Ratio, env.Params.MinVolumeRatio), r)
}

// Quote is the execution price a buy will use.
type Quote struct {
	Price        decimal.Decimal `json:"price"`
	PreClose     decimal.Decimal `json:"pre_close"`
	Rise         decimal.Decimal `json:"rise"`
	PreopenRatio float64         `json:"preopen_ratio"`
	Time         string          `json:"time"`
}

// PreopenRiseBound needs auction participation and a price that has not
// already run away.
type PreopenRiseBound struct{}

func (PreopenRiseBound) Name() string { return NamePreopenRiseBound }

func (PreopenRiseBound) Evaluate(ctx context.Context, env *Env) Outcome {
	p := env.Params
	tick, err := env.View.LatestTick(ctx, env.Code)
	if err != nil {
		return fromErr(err, "latest tick")
	}
	pre, err := env.View.TickAtOrBefore(ctx, env.Code, p.AuctionEnd)
	if err != nil {
		return fromErr(err, "auction tick")
	}
	daily, err := env.View.LatestDaily(ctx, env.Code)
	if err != nil {
		return fromErr(err, "prior daily bar")
	}
	if daily.Volume <= 0 {
		return Fail("prior daily volume unavailable", nil)
	}
	rise, ok := tick.Rise()
	if !ok {
		return Fail("previous close unavailable", nil)
	}

	q := Quote{
		Price:        tick.Price(),
		PreClose:     tick.PreClose,
		Rise:         rise,
		PreopenRatio: float64(pre.Volume) / float64(daily.Volume),
		Time:         tick.Time,
	}
	if q.PreopenRatio < p.MinPreopenRatio {
		return Fail(fmt.Sprintf("auction volume ratio %.4f too quiet", q.PreopenRatio), q)
	}
	if rise.GreaterThan(p.MaxPreopenRise) {
		return Fail(fmt.Sprintf("rise %s%% already above %s%%", pct(rise), pct(p.MaxPreopenRise)), q)
	}
	return Pass(fmt.Sprintf("rise %s%%, auction ratio %.4f", pct(rise), q.PreopenRatio), q)
}

func pct(d decimal.Decimal) string { return d.Mul(decimal.NewFromInt(100)).StringFixed(2) }
