package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(MapperRowsTotal); n < 7 {
		t.Errorf("MapperRowsTotal series = %d, want at least 7", n)
	}
	if n := testutil.CollectAndCount(MapperVideoLookups); n < 3 {
		t.Errorf("MapperVideoLookups series = %d, want at least 3", n)
	}
	if n := testutil.CollectAndCount(DispatchTotal); n < 2 {
		t.Errorf("DispatchTotal series = %d, want at least 2", n)
	}
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(MapperRowsTotal.WithLabelValues(OutcomeIncluded))
	MapperRowsTotal.WithLabelValues(OutcomeIncluded).Inc()
	after := testutil.ToFloat64(MapperRowsTotal.WithLabelValues(OutcomeIncluded))

	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}
