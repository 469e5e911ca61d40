package logfields

import (
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    interface{}
	}{
		{"RunID", KeyRunID, "run-1", RunID("run-1")},
		{"Trigger", KeyTrigger, "plugin", Trigger("plugin")},
		{"Stage", KeyStage, "deploy", Stage("deploy")},
		{"Plugin", KeyPlugin, "inventory", Plugin("inventory")},
		{"Resource", KeyResource, "garage", Resource("garage")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Root", KeyRoot, "/srv/plugins", Root("/srv/plugins")},
		{"Kind", KeyKind, "core", Kind("core")},
		{"Key", KeyKey, "restart:garage", Key("restart:garage")},
		{"Host", KeyHost, "127.0.0.1", Host("127.0.0.1")},
	}

	for _, tc := range cases {
		a := tc.attr.(slog.Attr)
		if a.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, a.Key)
		}
		if got := a.Value.String(); got != tc.attrVal { // Value is slog.Value
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & duration helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Port(30121); v.Key != KeyPort {
		t.Fatalf("Port key mismatch: %s", v.Key)
	}
	if v := Status(200); v.Key != KeyStatus {
		t.Fatalf("Status key mismatch: %s", v.Key)
	}
	if v := Count(3); v.Key != KeyCount {
		t.Fatalf("Count key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
	if v := DelayMS(1500 * time.Millisecond); v.Key != KeyDelayMS {
		t.Fatalf("DelayMS key mismatch: %s", v.Key)
	}
	if got := DelayMS(1500 * time.Millisecond).Value.Int64(); got != 1500 {
		t.Fatalf("DelayMS value mismatch: %d", got)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
