package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydromet/internal/observability"
)

func TestNewMetricsForTesting_IsolatedRegistries(t *testing.T) {
	m1, reg1 := observability.NewMetricsForTesting()
	m2, _ := observability.NewMetricsForTesting()

	m1.CommitTotal.WithLabelValues("nwp", "success").Inc()
	m1.OrphansDetected.WithLabelValues("storms").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m1.CommitTotal.WithLabelValues("nwp", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.CommitTotal.WithLabelValues("nwp", "success")))

	n, err := testutil.GatherAndCount(reg1, "hydromet_orphans_detected_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
