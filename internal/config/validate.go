package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// KnownAdapters is injected by the scrape package at init time so config
// validation can reject unknown strategy names without an import cycle.
var KnownAdapters = func() []string { return nil }

// NormalizeAndValidate returns a cleaned copy plus everything wrong with it.
// An unknown adapter strategy is an error, not a warning: the runner would
// have no implementation to dispatch to.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Geography.Preferred = trimList(out.Geography.Preferred)
	out.Geography.Banned = trimList(out.Geography.Banned)
	out.SeniorityKeywords = trimList(out.SeniorityKeywords)
	out.DomainKeywords = trimList(out.DomainKeywords)

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if strings.TrimSpace(out.AdminToken) == "" {
		res.addWarn("admin_token is empty; mutating endpoints will only accept a keyring-stored token.")
	}

	if out.Refresh.SourceTimeoutSeconds <= 0 {
		res.addErr("refresh.source_timeout_seconds must be > 0")
	}
	if out.Refresh.Workers <= 0 {
		res.addErr("refresh.workers must be > 0")
	}
	if strings.TrimSpace(out.Refresh.Cron) == "" {
		res.addErr("refresh.cron is required")
	}

	known := map[string]bool{}
	for _, a := range KnownAdapters() {
		known[a] = true
	}

	seenNames := map[string]bool{}
	for i, s := range out.Sources {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			res.addErr("sources[%d].name is required", i)
		}
		if seenNames[strings.ToLower(name)] {
			res.addErr("sources[%d].name %q appears more than once", i, name)
		}
		seenNames[strings.ToLower(name)] = true

		if strings.TrimSpace(s.Endpoint) == "" {
			res.addErr("sources[%d].endpoint is required", i)
		}
		if strings.TrimSpace(s.Adapter) == "" {
			res.addErr("sources[%d].adapter is required", i)
		} else if len(known) > 0 && !known[s.Adapter] {
			res.addErr("sources[%d].adapter %q is unknown (available: %s)",
				i, s.Adapter, strings.Join(KnownAdapters(), ", "))
		}
	}
	if len(out.Sources) == 0 {
		res.addWarn("no sources configured; refresh cycles will do nothing.")
	}

	w := out.Weights
	for _, c := range []struct {
		name string
		v    int
	}{
		{"seniority", w.Seniority},
		{"pnl", w.PnL},
		{"transformation", w.Transformation},
		{"industry", w.Industry},
		{"geo", w.Geo},
		{"banned_penalty", w.BannedPenalty},
	} {
		if c.v < 0 {
			res.addErr("scoring_weights.%s must be >= 0", c.name)
		}
	}

	// banned/preferred conflicts are confusing but not fatal
	bannedSet := map[string]bool{}
	for _, b := range out.Geography.Banned {
		bannedSet[strings.ToLower(b)] = true
	}
	for _, p := range out.Geography.Preferred {
		if bannedSet[strings.ToLower(p)] {
			res.addWarn("geography %q appears in both preferred and banned", p)
		}
	}

	return out, res
}
