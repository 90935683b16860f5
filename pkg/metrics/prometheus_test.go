package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecorderRegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordTick("manual", 10*time.Millisecond, 3, 1)
	r.RecordBinLevel("BIN-P001", "PLASTIC", 42.5)
	r.RecordEmptied("PLASTIC")
	r.SetSchedulerRunning(true)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"binpulse_ticks_total", "binpulse_bin_level_percent", "binpulse_bins_emptied_total", "binpulse_scheduler_running"} {
		if !names[want] {
			t.Fatalf("metric %s not gathered", want)
		}
	}
}
