package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	tests := []struct {
		name     string
		in       []interface{}
		expected []interface{}
	}{
		{"plain pairs", []interface{}{"contract_id", 42}, []interface{}{"contract_id", 42}},
		{"dsn redacted", []interface{}{"DSN", "postgres://u:p@db/x"}, []interface{}{"DSN", "[REDACTED]"}},
		{"password redacted", []interface{}{"db_password", "hunter2"}, []interface{}{"db_password", "[REDACTED]"}},
		{"dangling key kept", []interface{}{"a", 1, "orphan"}, []interface{}{"a", 1, "orphan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeKVs(tt.in)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d values, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected %v at %d, got %v", tt.expected[i], i, got[i])
				}
			}
		})
	}
}

func TestLogger_WithRedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.Named("ledger").With("token", "abc").Info("bulk pay", "updated", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["service"] != "ledger" {
		t.Errorf("Expected service=ledger, got %v", fields["service"])
	}
	if fields["token"] != "[REDACTED]" {
		t.Errorf("Expected token to be redacted, got %v", fields["token"])
	}
	if fields["updated"] != int64(3) {
		t.Errorf("Expected updated=3, got %v", fields["updated"])
	}
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "quiet"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("Expected logger for mode %s, got error %v", mode, err)
		}
		l.Debug("probe")
	}
}
