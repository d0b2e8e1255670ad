// Package metrics contains a sink interface to be used by clients to implement sink.
// It also provides a default NoopSink and LogSink for convenience.
package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Metric types.
const (
	UNKNOWN byte = iota
	COUNTER
	GAUGE
)

const (
	SinkTimeout                = 1 * time.Second
	TableRowsCopiedMetricName  = "table_rows_copied"
	TableCopyTimeMetricName    = "table_copy_time_ms"
	TableFailedCountMetricName = "table_failed"
)

// Metrics are collection of MetricValues.
type Metrics struct {
	Values []MetricValue
}

type MetricValue struct {
	// Name is the metric name
	Name string

	// Table is the table the value was measured for, if any.
	Table string

	// Value is the value of the metric.
	Value float64

	// Type is the metric type: GAUGE, COUNTER, and other const.
	Type byte
}

// Sink sends metrics to an external destination.
type Sink interface {
	// Send sends metrics to the sink. It must respect the context timeout, if any.
	Send(ctx context.Context, metrics *Metrics) error
}

// NoopSink is the default sink which does nothing
type NoopSink struct{}

func (s *NoopSink) Send(ctx context.Context, m *Metrics) error {
	return nil
}

var _ Sink = &NoopSink{}

// logSink logs metrics
type logSink struct {
	logger *slog.Logger
}

func (l *logSink) Send(ctx context.Context, m *Metrics) error {
	for _, v := range m.Values {
		switch v.Type {
		case COUNTER:
			l.logger.Info("metric", "name", v.Name, "table", v.Table, "type", "counter", "value", v.Value)
		case GAUGE:
			l.logger.Info("metric", "name", v.Name, "table", v.Table, "type", "gauge", "value", v.Value)
		default:
			l.logger.Error("Received invalid metric type", "type", v.Type, "name", v.Name, "value", v.Value)
		}
	}
	return nil
}

var _ Sink = &logSink{}

func NewLogSink(logger *slog.Logger) *logSink {
	return &logSink{
		logger: logger,
	}
}

// SendTableCopy reports the outcome of copying one table. Sink errors are
// logged and otherwise ignored; metrics never fail a migration.
func SendTableCopy(ctx context.Context, sink Sink, logger *slog.Logger, table string, rows int64, elapsed time.Duration, failed bool) {
	m := &Metrics{Values: []MetricValue{
		{Name: TableRowsCopiedMetricName, Table: table, Value: float64(rows), Type: COUNTER},
		{Name: TableCopyTimeMetricName, Table: table, Value: float64(elapsed.Milliseconds()), Type: GAUGE},
	}}
	if failed {
		m.Values = append(m.Values, MetricValue{Name: TableFailedCountMetricName, Table: table, Value: 1, Type: COUNTER})
	}
	ctx, cancel := context.WithTimeout(ctx, SinkTimeout)
	defer cancel()
	if err := sink.Send(ctx, m); err != nil {
		logger.Warn("error sending metrics", "table", table, "error", err)
	}
}
