package adapter

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"
)

// SysInfo implements domain.HostInfo against the running host. It is queried
// once at startup to size the cache and worker pool.
type SysInfo struct{}

// TotalMemoryBytes returns the host's total physical memory.
func (SysInfo) TotalMemoryBytes() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("querying host memory: %w", err)
	}
	return vm.Total, nil
}

// CPUCoreCount returns the number of logical CPU cores.
func (SysInfo) CPUCoreCount() (int, error) {
	return runtime.NumCPU(), nil
}
