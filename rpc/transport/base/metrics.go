package base

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"time"
)

// Metric names exported by the client transport. All metrics are registered in the
// default VictoriaMetrics set and can be written with metrics.WritePrometheus.
const (
	metricRequests      = "revit_transport_requests_total"
	metricErrors        = "revit_transport_errors_total"
	metricDuration      = "revit_transport_request_duration_seconds"
	metricConnects      = "revit_transport_connects_total"
	metricReconnects    = "revit_transport_reconnect_attempts_total"
	metricDisconnects   = "revit_transport_disconnects_total"
	metricUnsolicited   = "revit_transport_unsolicited_responses_total"
	metricDecodeFailure = "revit_transport_decode_failures_total"
)

// Error kinds used as label of metricErrors
const (
	errKindConnect  = "connect"
	errKindRejected = "rejected"
	errKindTimeout  = "timeout"
	errKindLost     = "connection_lost"
	errKindEncode   = "encode"
	errKindOther    = "other"
)

// transportMetrics bundles the metrics of one client transport, labeled by endpoint
type transportMetrics struct {
	endpoint string
}

func newTransportMetrics(endpoint string) *transportMetrics {
	return &transportMetrics{endpoint: endpoint}
}

func (m *transportMetrics) name(metric string, labels ...string) string {
	s := fmt.Sprintf(`%s{endpoint=%q`, metric, m.endpoint)
	for i := 0; i+1 < len(labels); i += 2 {
		s += fmt.Sprintf(`,%s=%q`, labels[i], labels[i+1])
	}
	return s + "}"
}

func (m *transportMetrics) request(command string, start time.Time, errKind string) {
	metrics.GetOrCreateCounter(m.name(metricRequests, "command", command)).Inc()
	metrics.GetOrCreateHistogram(m.name(metricDuration, "command", command)).UpdateDuration(start)
	if errKind != "" {
		metrics.GetOrCreateCounter(m.name(metricErrors, "kind", errKind)).Inc()
	}
}

func (m *transportMetrics) connected() {
	metrics.GetOrCreateCounter(m.name(metricConnects)).Inc()
}

func (m *transportMetrics) reconnectAttempt() {
	metrics.GetOrCreateCounter(m.name(metricReconnects)).Inc()
}

func (m *transportMetrics) disconnected() {
	metrics.GetOrCreateCounter(m.name(metricDisconnects)).Inc()
}

func (m *transportMetrics) unsolicited() {
	metrics.GetOrCreateCounter(m.name(metricUnsolicited)).Inc()
}

func (m *transportMetrics) decodeFailure() {
	metrics.GetOrCreateCounter(m.name(metricDecodeFailure)).Inc()
}
