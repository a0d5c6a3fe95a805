package numbering

import (
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

// Reset is how often a counter starts over
type Reset string

const (
	ResetNever   Reset = "never"
	ResetYearly  Reset = "yearly"
	ResetMonthly Reset = "monthly"
)

type part struct {
	literal string
	token   string
	pad     int
}

// Pattern is a parsed number format such as "INV-{Y}-{cy,4}"
type Pattern struct {
	raw   string
	parts []part
	reset Reset
}

var counterResets = map[string]Reset{
	"c":  ResetNever,
	"cy": ResetYearly,
	"cm": ResetMonthly,
}

var dateTokens = map[string]bool{"Y": true, "y": true, "M": true, "D": true}

// Parse validates a number format. Exactly one counter token is required,
// and a resetting counter needs the date tokens naming its period so that
// numbers from different periods never coincide.
func Parse(raw string) (*Pattern, error) {
	p := &Pattern{raw: raw}
	rest := raw
	counters := 0
	seen := make(map[string]bool)

	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			p.parts = append(p.parts, part{literal: rest})
			break
		}
		if open > 0 {
			p.parts = append(p.parts, part{literal: rest[:open]})
		}

		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return nil, errs.Invalid("numberFormat", "unclosed placeholder in %q", raw)
		}
		body := rest[open+1 : open+closing]
		rest = rest[open+closing+1:]

		name, padding, hasPad := strings.Cut(body, ",")
		pt := part{token: name}
		if hasPad {
			n, err := strconv.Atoi(padding)
			if err != nil || n < 1 || n > 12 {
				return nil, errs.Invalid("numberFormat", "invalid padding in {%s}", body)
			}
			pt.pad = n
		}

		seen[name] = true
		switch {
		case dateTokens[name]:
		case counterResets[name] != "":
			counters++
			p.reset = counterResets[name]
		default:
			return nil, errs.Invalid("numberFormat", "unknown placeholder {%s}", body)
		}
		p.parts = append(p.parts, pt)
	}

	if counters != 1 {
		return nil, errs.Invalid("numberFormat", "exactly one counter ({c}, {cy} or {cm}) is required")
	}

	hasYear := seen["Y"] || seen["y"]
	switch p.reset {
	case ResetYearly:
		if !hasYear {
			return nil, errs.Invalid("numberFormat", "a yearly counter requires {Y} or {y}")
		}
	case ResetMonthly:
		if !hasYear || !seen["M"] {
			return nil, errs.Invalid("numberFormat", "a monthly counter requires {M} and {Y} or {y}")
		}
	}
	return p, nil
}

// String returns the pattern as written
func (p *Pattern) String() string {
	return p.raw
}

// Reset returns the reset granularity of the counter
func (p *Pattern) Reset() Reset {
	return p.reset
}

// Epoch names the counter period containing at
func (p *Pattern) Epoch(at time.Time) string {
	switch p.reset {
	case ResetYearly:
		return at.Format("2006")
	case ResetMonthly:
		return at.Format("2006-01")
	}
	return "all"
}

// Format renders the number for counter value n issued at at
func (p *Pattern) Format(at time.Time, n int64) string {
	var b strings.Builder
	for _, pt := range p.parts {
		if pt.token == "" {
			b.WriteString(pt.literal)
			continue
		}

		var value string
		switch pt.token {
		case "Y":
			value = at.Format("2006")
		case "y":
			value = at.Format("06")
		case "M":
			value = at.Format("01")
		case "D":
			value = at.Format("02")
		default:
			value = strconv.FormatInt(n, 10)
		}

		if pt.pad > len(value) {
			value = strings.Repeat("0", pt.pad-len(value)) + value
		}
		b.WriteString(value)
	}
	return b.String()
}
