package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. Uses regex to handle
// extra OTel scope labels injected by the Prometheus exporter.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func TestNewBusinessMetrics(t *testing.T) {
	t.Run("Success_CreateBusinessMetrics", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)

		businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

		require.NoError(t, err)
		assert.NotNil(t, businessMetrics)
	})
}

func TestObserve(t *testing.T) {
	provider, err := NewProvider("observe_test")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "observe_test")
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now().Add(-25 * time.Millisecond)
	Observe(ctx, bm, DomainAudit, "append", start, nil)
	Observe(ctx, bm, DomainAudit, "append", start, nil)
	Observe(ctx, bm, DomainKeys, "rotate", start, assert.AnError)

	output := scrape(t, provider)
	assertBizMetricLine(
		t,
		output,
		`observe_test_operations_total`,
		`domain="audit".*operation="append".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`observe_test_operations_total`,
		`domain="keys".*operation="rotate".*status="error"`,
		`1`,
	)
	assertBizMetricLine(
		t,
		output,
		`observe_test_operation_duration_seconds_count`,
		`domain="audit".*operation="append".*status="success"`,
		`2`,
	)
}

func TestBusinessMetrics_RecordItems(t *testing.T) {
	provider, err := NewProvider("items_test")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "items_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordItems(ctx, DomainKeys, "fields_reencrypted", 40)
	bm.RecordItems(ctx, DomainKeys, "fields_reencrypted", 2)
	bm.RecordItems(ctx, DomainKeys, "fields_reencrypted", 0)
	bm.RecordItems(ctx, DomainAudit, "entries_verified", 7)

	output := scrape(t, provider)
	assertBizMetricLine(
		t,
		output,
		`items_test_items_processed_total`,
		`domain="keys".*item="fields_reencrypted"`,
		`42`,
	)
	assertBizMetricLine(
		t,
		output,
		`items_test_items_processed_total`,
		`domain="audit".*item="entries_verified"`,
		`7`,
	)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	t.Run("Success_NoOpDoesNotPanic", func(t *testing.T) {
		noOpMetrics := NewNoOpBusinessMetrics()
		assert.IsType(t, NoOpBusinessMetrics{}, noOpMetrics)
		ctx := context.Background()

		noOpMetrics.RecordOperation(ctx, DomainFields, "protect", StatusSuccess)
		noOpMetrics.RecordDuration(ctx, DomainFields, "reveal", 10*time.Millisecond, StatusError)
		noOpMetrics.RecordItems(ctx, DomainKeys, "fields_reencrypted", 3)
		Observe(ctx, noOpMetrics, DomainAudit, "verify", time.Now(), nil)
	})
}
