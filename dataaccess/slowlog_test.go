package dataaccess

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-query-cache/parameter"
)

func TestSlowQueryLogger_Threshold(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		threshold int64
		elapsed   time.Duration
		want      bool
	}{
		{"below threshold", 10, 9 * time.Second, false},
		{"exactly at threshold", 10, 10 * time.Second, false},
		{"fraction above threshold truncates", 10, 10*time.Second + 999*time.Millisecond, false},
		{"one second above threshold", 10, 11 * time.Second, true},
		{"zero threshold with sub second run", 0, 500 * time.Millisecond, false},
		{"zero threshold with one second run", 0, time.Second, true},
		{"default threshold", 3600, 3601 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			slow := NewSlowQueryLogger(zap.New(core), tt.threshold)
			slow.now = func() time.Time { return start.Add(tt.elapsed) }

			got := slow.Report(start, "orders", "SELECT 1", parameter.Resolved{})
			if got != tt.want {
				t.Errorf("Report() = %v, want %v", got, tt.want)
			}

			wantRecords := 0
			if tt.want {
				wantRecords = 1
			}
			if logs.Len() != wantRecords {
				t.Errorf("expected %d records, got %d", wantRecords, logs.Len())
			}
		})
	}
}

func TestSlowQueryLogger_RecordFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	slow := NewSlowQueryLogger(zap.New(core), 1)
	start := time.Now()
	slow.now = func() time.Time { return start.Add(5 * time.Second) }

	params, err := parameter.Resolve(parameter.MustSet(
		parameter.Parameter{Name: "region", Type: parameter.TypeString, Default: "EMEA"},
		parameter.Parameter{Name: "ids", Type: parameter.TypeIntegerArray, Default: []int64{1, 2}},
	), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	slow.Report(start, "orders", "\n  SELECT a FROM t  \n", params)

	entries := logs.FilterMessage("slow query").All()
	if len(entries) != 1 {
		t.Fatalf("expected one slow query record, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("expected warn level, got %s", entry.Level)
	}

	fields := entry.ContextMap()
	if fields["data_access"] != "orders" {
		t.Errorf("unexpected data_access %v", fields["data_access"])
	}
	if fields["elapsed_seconds"] != int64(5) {
		t.Errorf("unexpected elapsed_seconds %v", fields["elapsed_seconds"])
	}
	if fields["query"] != "SELECT a FROM t" {
		t.Errorf("expected trimmed query, got %q", fields["query"])
	}

	rendered, ok := fields["parameters"].([]interface{})
	if !ok || len(rendered) != 2 {
		t.Fatalf("unexpected parameters field %#v", fields["parameters"])
	}
	if rendered[0] != "ids=[1,2]" || rendered[1] != "region=EMEA" {
		t.Errorf("unexpected rendered parameters %v", rendered)
	}
}
