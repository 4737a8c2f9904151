package telemetry

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var perfMeter = otel.Meter("perf_stats")

// InstrumentPerfStats registers process-level gauges (cpu, heap, live
// objects, goroutines) that are sampled each time the periodic reader
// collects. A crawl run is short compared to a resident server, so the
// cpu probe is the delta since the previous collection rather than a
// windowed average.
func InstrumentPerfStats(ctx context.Context) error {
	cpuGauge, err := perfMeter.Float64ObservableGauge("cpu_usage")
	if err != nil {
		return err
	}
	heapGauge, err := perfMeter.Int64ObservableGauge("heap_alloc_mb")
	if err != nil {
		return err
	}
	liveObjectsGauge, err := perfMeter.Int64ObservableGauge("live_objects")
	if err != nil {
		return err
	}
	goroutineGauge, err := perfMeter.Int64ObservableGauge("goroutine_count")
	if err != nil {
		return err
	}

	_, err = perfMeter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)

			o.ObserveInt64(heapGauge, int64(memStats.Alloc/1_000_000))
			o.ObserveInt64(liveObjectsGauge, int64(memStats.Mallocs)-int64(memStats.Frees))
			o.ObserveInt64(goroutineGauge, int64(runtime.NumGoroutine()))

			usage, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				slog.Warn("failed to read cpu usage", "err", err)
				return nil
			}
			o.ObserveFloat64(cpuGauge, usage[0])
			return nil
		},
		cpuGauge, heapGauge, liveObjectsGauge, goroutineGauge,
	)
	return err
}
