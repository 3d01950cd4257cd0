package metrics

import "time"

// Refresh result labels
const (
	RefreshResultSuccess   = "success"
	RefreshResultTerminal  = "terminal"
	RefreshResultTransient = "transient"
)

// Conversion result labels
const (
	ConversionResultSuccess      = "success"
	ConversionResultUnauthorized = "unauthorized"
	ConversionResultFailed       = "failed"
)

// Recorder abstracts metrics recording so business code never depends on
// Prometheus directly. Init returns a no-op implementation when metrics
// are disabled.
type Recorder interface {
	// RecordExchange records an authorization-code exchange attempt
	RecordExchange(success bool)

	// RecordRefresh records a token refresh attempt with its outcome
	RecordRefresh(result string)

	// RecordConversion records a Company-to-Location token conversion
	RecordConversion(result string)

	// RecordConversionCacheHit records a conversion served from cache
	// with no provider call
	RecordConversionCacheHit()

	// RecordSweep records one completed refresh sweep
	RecordSweep(duration time.Duration)

	// SetInstallationsCount updates the installation gauges
	SetInstallationsCount(total, needsReauth int)
}
