package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTrigger    = "trigger"
	KeyStage      = "stage"
	KeyPlugin     = "plugin"
	KeyResource   = "resource"
	KeyPath       = "path"
	KeyRoot       = "root"
	KeyKind       = "kind"
	KeyKey        = "key"
	KeyDelayMS    = "delay_ms"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyHost       = "host"
	KeyPort       = "port"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func Resource(name string) slog.Attr  { return slog.String(KeyResource, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Root(r string) slog.Attr         { return slog.String(KeyRoot, r) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func DelayMS(d time.Duration) slog.Attr {
	return slog.Int64(KeyDelayMS, d.Milliseconds())
}
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Host(h string) slog.Attr         { return slog.String(KeyHost, h) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
