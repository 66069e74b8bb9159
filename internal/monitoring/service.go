package monitoring

import (
	"context"
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type MonitoringService struct {
	metrics  *Metrics
	interval time.Duration
	diskPath string
}

func NewMonitoringService(metrics *Metrics, interval time.Duration) *MonitoringService {
	return &MonitoringService{
		metrics:  metrics,
		interval: interval,
		diskPath: "/",
	}
}

// StartCollection samples host metrics every interval until ctx is done
func (s *MonitoringService) StartCollection(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		s.collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.collect(ctx)
			}
		}
	}()
}

func (s *MonitoringService) collect(ctx context.Context) {
	// Non-blocking sample: utilisation since the previous call
	if cpuPercents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercents) > 0 {
		s.metrics.SystemCPUPercent.Set(cpuPercents[0])
	}

	if memStats, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.metrics.SystemMemoryUsed.Set(float64(memStats.Used))
		s.metrics.SystemMemoryTotal.Set(float64(memStats.Total))
	} else {
		log.Printf("[Monitoring] memory stats: %v", err)
	}

	if diskStats, err := disk.UsageWithContext(ctx, s.diskPath); err == nil {
		s.metrics.SystemDiskUsed.Set(float64(diskStats.Used))
		s.metrics.SystemDiskTotal.Set(float64(diskStats.Total))
	} else {
		log.Printf("[Monitoring] disk stats: %v", err)
	}
}
