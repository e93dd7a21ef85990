package dataaccess

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/parameter"
)

// SlowQueryLogger warns about executions that took longer than a threshold.
type SlowQueryLogger struct {
	threshold int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewSlowQueryLogger reports executions slower than thresholdSeconds.
func NewSlowQueryLogger(logger *zap.Logger, thresholdSeconds int64) *SlowQueryLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlowQueryLogger{threshold: thresholdSeconds, logger: logger, now: time.Now}
}

// Threshold returns the threshold in seconds.
func (l *SlowQueryLogger) Threshold() int64 {
	return l.threshold
}

// Report logs one "slow query" record when the whole seconds elapsed since
// start exceed the threshold. It returns whether a record was written.
func (l *SlowQueryLogger) Report(start time.Time, dataAccessID, query string, params parameter.Resolved) bool {
	elapsed := int64(l.now().Sub(start) / time.Second)
	if elapsed <= l.threshold {
		return false
	}

	l.logger.Warn("slow query",
		zap.String("data_access", dataAccessID),
		zap.Int64("elapsed_seconds", elapsed),
		zap.String("query", strings.TrimSpace(query)),
		zap.Strings("parameters", params.Strings()),
	)
	return true
}
