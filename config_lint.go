package goSession

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// LintSeverity orders configuration warnings.
type LintSeverity uint8

const (
	// LintInfo marks a deliberate but noteworthy choice.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that is probably wrong outside development.
	LintWarn
	// LintHigh marks a setting that exposes tokens or breaks session guarantees.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding from [Config.Lint].
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the ordered result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (ws LintWarnings) AsError(min LintSeverity) error {
	hits := ws.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

const (
	longBackgroundGrace  = 30 * time.Minute
	shortBackgroundGrace = 30 * time.Second
)

// Lint reports settings that are valid but risky. It never fails; use
// [LintWarnings.AsError] to gate startup on a severity.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	if u, err := url.Parse(c.Backend.BaseURL); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		ws = append(ws, LintWarning{
			Code:     "backend_plain_http",
			Severity: LintHigh,
			Message:  "bearer tokens would be sent in cleartext to a non-loopback host",
		})
	}

	if c.Lifecycle.BackgroundGrace > longBackgroundGrace {
		ws = append(ws, LintWarning{
			Code:     "background_grace_long",
			Severity: LintWarn,
			Message:  "sessions survive more than 30m in the background",
		})
	}
	if c.Lifecycle.BackgroundGrace > 0 && c.Lifecycle.BackgroundGrace < shortBackgroundGrace {
		ws = append(ws, LintWarning{
			Code:     "background_grace_short",
			Severity: LintInfo,
			Message:  "brief app switches will end the session",
		})
	}

	if !c.Validation.Enabled {
		ws = append(ws, LintWarning{
			Code:     "validation_disabled",
			Severity: LintInfo,
			Message:  "malformed credentials reach the backend",
		})
	}

	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{
			Code:     "audit_disabled",
			Severity: LintInfo,
			Message:  "session lifecycle events are not recorded",
		})
	} else if !c.Audit.DropIfFull {
		ws = append(ws, LintWarning{
			Code:     "audit_blocking",
			Severity: LintWarn,
			Message:  "a slow audit sink blocks session operations",
		})
	}

	return ws
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
