package market

import "strings"

// MainAction classifies an intraday momentum event.
type MainAction string

const (
	MainLift MainAction = "MAIN_LIFT"
	MainDump MainAction = "MAIN_DUMP"
)

type MomentumTag struct {
	Code   string
	Date   string
	Time   string
	Action MainAction
}

// Themes is an ordered list of theme tags, strongest first.
type Themes []string

// ParseThemes splits the comma separated all_themes column.
func ParseThemes(s string) Themes {
	var out Themes
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (t Themes) Primary() string {
	if len(t) > 0 {
		return t[0]
	}
	return ""
}

func (t Themes) Secondary() string {
	if len(t) > 1 {
		return t[1]
	}
	return ""
}

// Top2 returns the tags that take part in sector checks.
func (t Themes) Top2() Themes {
	if len(t) > 2 {
		return t[:2]
	}
	return t
}

func (t Themes) Has(tag string) bool {
	if tag == "" {
		return false
	}
	for _, x := range t {
		if x == tag {
			return true
		}
	}
	return false
}

// SharesTop2 reports whether either of the top two tags of o is one of the
// top two tags of t.
func (t Themes) SharesTop2(o Themes) bool {
	top := t.Top2()
	for _, tag := range o.Top2() {
		if top.Has(tag) {
			return true
		}
	}
	return false
}
