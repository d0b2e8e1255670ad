package metrics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
	os.Exit(m.Run())
}

type recordingSink struct {
	got []*Metrics
	err error
}

func (r *recordingSink) Send(ctx context.Context, m *Metrics) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline")
	}
	r.got = append(r.got, m)
	return r.err
}

func TestSendTableCopy(t *testing.T) {
	sink := &recordingSink{}
	SendTableCopy(t.Context(), sink, slog.Default(), "reviews", 3, 1500*time.Millisecond, false)
	require.Len(t, sink.got, 1)
	assert.Equal(t, []MetricValue{
		{Name: TableRowsCopiedMetricName, Table: "reviews", Value: 3, Type: COUNTER},
		{Name: TableCopyTimeMetricName, Table: "reviews", Value: 1500, Type: GAUGE},
	}, sink.got[0].Values)

	SendTableCopy(t.Context(), sink, slog.Default(), "years", 0, 0, true)
	require.Len(t, sink.got, 2)
	assert.Len(t, sink.got[1].Values, 3)
	assert.Equal(t, TableFailedCountMetricName, sink.got[1].Values[2].Name)
}

func TestSendTableCopySinkError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	SendTableCopy(t.Context(), &recordingSink{err: errors.New("unreachable")}, logger, "genres", 1, time.Second, false)
	assert.Contains(t, buf.String(), "error sending metrics")
	assert.Contains(t, buf.String(), "unreachable")
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, sink.Send(t.Context(), &Metrics{Values: []MetricValue{
		{Name: TableRowsCopiedMetricName, Table: "labels", Value: 4, Type: COUNTER},
		{Name: "bogus", Value: 1, Type: UNKNOWN},
	}}))
	out := buf.String()
	assert.Contains(t, out, "name=table_rows_copied table=labels type=counter value=4")
	assert.Contains(t, out, "Received invalid metric type")

	assert.NoError(t, (&NoopSink{}).Send(t.Context(), &Metrics{}))
}
