package metrics

import "time"

// NoopMetrics is a no-operation Recorder used when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordExchange(success bool)                  {}
func (n *NoopMetrics) RecordRefresh(result string)                  {}
func (n *NoopMetrics) RecordConversion(result string)               {}
func (n *NoopMetrics) RecordConversionCacheHit()                    {}
func (n *NoopMetrics) RecordSweep(duration time.Duration)           {}
func (n *NoopMetrics) SetInstallationsCount(total, needsReauth int) {}
