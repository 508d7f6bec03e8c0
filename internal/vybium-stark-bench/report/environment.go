package report

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"
)

// Environment describes the machine a report was produced on
type Environment struct {
	CPU         string `json:"cpu"`
	Cores       int    `json:"cores"`
	LogicalCPUs int    `json:"logical_cpus"`
	AVX2        bool   `json:"avx2"`
	AVX512      bool   `json:"avx512"`
	MemoryBytes uint64 `json:"memory_bytes"`
	GoVersion   string `json:"go_version"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
}

// DetectEnvironment inspects the current machine
func DetectEnvironment() Environment {
	return Environment{
		CPU:         cpuid.CPU.BrandName,
		Cores:       cpuid.CPU.PhysicalCores,
		LogicalCPUs: runtime.NumCPU(),
		AVX2:        cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:      cpuid.CPU.Supports(cpuid.AVX512F),
		MemoryBytes: memory.TotalMemory(),
		GoVersion:   runtime.Version(),
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
	}
}
