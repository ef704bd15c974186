package metrics

import "time"

// Collector records payment workflow events.
type Collector interface {
	RecordPaymentCreated(result string)
	RecordGatewayCall(operation, result string, d time.Duration)
	RecordWebhook(result string)
	RecordStatusTransition(status string)
	RecordSweep(expired, polled, relinked int)
	RecordCacheHit(name string)
	RecordCacheMiss(name string)
}

// Noop is a no-op implementation of Collector
type Noop struct{}

func (Noop) RecordPaymentCreated(string)                     {}
func (Noop) RecordGatewayCall(string, string, time.Duration) {}
func (Noop) RecordWebhook(string)                            {}
func (Noop) RecordStatusTransition(string)                   {}
func (Noop) RecordSweep(int, int, int)                       {}
func (Noop) RecordCacheHit(string)                           {}
func (Noop) RecordCacheMiss(string)                          {}
