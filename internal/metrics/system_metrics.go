package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	systemCPUPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "system_cpu_usage_percent",
			Help: "System-wide CPU usage percentage",
		},
	)

	systemMemoryPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "system_memory_usage_percent",
			Help: "System-wide memory usage percentage",
		},
	)

	goGoroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "go_goroutines_current",
			Help: "Current number of goroutines",
		},
	)
)

// StartSystemMetrics samples CPU, memory, and runtime gauges until the
// context is cancelled.
func StartSystemMetrics(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sampleSystemMetrics()
			}
		}
	}()
}

func sampleSystemMetrics() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		systemCPUPercent.Set(percents[0])
	} else if err != nil {
		log.Debug().Err(err).Msg("Failed to sample CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		systemMemoryPercent.Set(vm.UsedPercent)
	} else {
		log.Debug().Err(err).Msg("Failed to sample memory usage")
	}

	goGoroutines.Set(float64(runtime.NumGoroutine()))
}
