// Package diagnostics collects host-level resource information for the
// doctor command.
package diagnostics

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostReport is a point-in-time summary of the machine the orchestrator
// runs on. Collection is best-effort: probes that fail leave their
// fields at zero rather than aborting the report.
type HostReport struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	GoVersion string `json:"go_version"`

	CPUModel   string  `json:"cpu_model,omitempty"`
	CPUCores   int     `json:"cpu_cores,omitempty"`
	CPUThreads int     `json:"cpu_threads,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`

	MemTotalMB float64 `json:"mem_total_mb,omitempty"`
	MemUsedMB  float64 `json:"mem_used_mb,omitempty"`
	MemPercent float64 `json:"mem_percent,omitempty"`

	DiskTotalGB float64 `json:"disk_total_gb,omitempty"`
	DiskUsedGB  float64 `json:"disk_used_gb,omitempty"`
	DiskPercent float64 `json:"disk_percent,omitempty"`

	LoadAvg1  float64 `json:"load_avg_1,omitempty"`
	LoadAvg5  float64 `json:"load_avg_5,omitempty"`
	LoadAvg15 float64 `json:"load_avg_15,omitempty"`

	Goroutines int `json:"goroutines"`
}

// CollectHost gathers a HostReport for the current machine.
func CollectHost() HostReport {
	report := HostReport{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}

	collectCPU(&report)
	collectMemory(&report)
	collectDisk(&report)
	collectLoad(&report)

	return report
}

func collectCPU(report *HostReport) {
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		report.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.Counts(false); err == nil {
		report.CPUCores = cores
	}
	if threads, err := cpu.Counts(true); err == nil {
		report.CPUThreads = threads
	}
	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		report.CPUPercent = percents[0]
	}
}

func collectMemory(report *HostReport) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	report.MemTotalMB = float64(vm.Total) / (1024 * 1024)
	report.MemUsedMB = float64(vm.Used) / (1024 * 1024)
	report.MemPercent = vm.UsedPercent
}

func collectDisk(report *HostReport) {
	usage, err := disk.Usage(rootDiskPath())
	if err != nil {
		return
	}
	report.DiskTotalGB = float64(usage.Total) / (1024 * 1024 * 1024)
	report.DiskUsedGB = float64(usage.Used) / (1024 * 1024 * 1024)
	report.DiskPercent = usage.UsedPercent
}

func collectLoad(report *HostReport) {
	avg, err := load.Avg()
	if err != nil {
		return
	}
	report.LoadAvg1 = avg.Load1
	report.LoadAvg5 = avg.Load5
	report.LoadAvg15 = avg.Load15
}

// rootDiskPath returns the mount point to sample for disk usage.
func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		if drive := os.Getenv("SystemDrive"); drive != "" {
			return drive + `\`
		}
		return `C:\`
	}
	return "/"
}
