package system

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine the engine runs on.
type HostStats struct {
	LogicalCPUs     int
	TotalMemory     uint64
	AvailableMemory uint64
	MemoryUsedPct   float64
}

// ReadHostStats queries the host. Missing values fall back to the Go
// runtime's view.
func ReadHostStats() HostStats {
	s := HostStats{LogicalCPUs: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		s.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemory = vm.Total
		s.AvailableMemory = vm.Available
		s.MemoryUsedPct = vm.UsedPercent
	}
	return s
}

// Workers sizes a worker pool. A positive request wins; otherwise one worker
// per logical CPU, further capped so each worker has perWorker bytes of
// available memory when that is known.
func (s HostStats) Workers(requested int, perWorker uint64) int {
	if requested > 0 {
		return requested
	}
	n := max(s.LogicalCPUs, 1)
	if perWorker > 0 && s.AvailableMemory > 0 {
		n = min(n, int(s.AvailableMemory/perWorker))
	}
	return max(n, 1)
}

func (s HostStats) String() string {
	if s.TotalMemory == 0 {
		return fmt.Sprintf("%d cpu", s.LogicalCPUs)
	}
	return fmt.Sprintf("%d cpu, %s free of %s (%.0f%% used)",
		s.LogicalCPUs, humanize.Bytes(s.AvailableMemory), humanize.Bytes(s.TotalMemory), s.MemoryUsedPct)
}
