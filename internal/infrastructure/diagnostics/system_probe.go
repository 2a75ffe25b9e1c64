package diagnostics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot - срез состояния хоста и процесса для diagnostics endpoint
type Snapshot struct {
	Hostname       string  `json:"hostname"`
	UptimeSeconds  uint64  `json:"uptime_seconds"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryPercent  float64 `json:"memory_percent"`
	MemoryUsedMB   uint64  `json:"memory_used_mb"`
	DiskPercent    float64 `json:"disk_percent"`
	GoroutineCount int     `json:"goroutine_count"`
	CollectedAt    string  `json:"collected_at"`
}

// SystemProbe собирает системные показатели для эксплуатации.
// Риск-скоринг эти данные не использует
type SystemProbe struct{}

// NewSystemProbe создает probe
func NewSystemProbe() *SystemProbe {
	return &SystemProbe{}
}

// Collect собирает показатели параллельно; недоступные источники
// оставляют нулевые значения
func (p *SystemProbe) Collect(ctx context.Context) *Snapshot {
	snapshot := &Snapshot{
		GoroutineCount: runtime.NumGoroutine(),
		CollectedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		if percentages, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(percentages) > 0 {
			snapshot.CPUPercent = percentages[0]
		}
	}()

	go func() {
		defer wg.Done()
		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
			snapshot.MemoryPercent = vm.UsedPercent
			snapshot.MemoryUsedMB = vm.Used / 1024 / 1024
		}
	}()

	go func() {
		defer wg.Done()
		if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
			snapshot.DiskPercent = usage.UsedPercent
		}
	}()

	go func() {
		defer wg.Done()
		if info, err := host.InfoWithContext(ctx); err == nil {
			snapshot.Hostname = info.Hostname
			snapshot.UptimeSeconds = info.Uptime
		}
	}()

	wg.Wait()

	return snapshot
}
