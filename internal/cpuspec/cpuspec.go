// Package cpuspec sizes model interpreter thread pools for the host CPU.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Spec describes the host CPU
type Spec struct {
	BrandName        string
	LogicalCores     int
	PhysicalCores    int
	PerformanceCores int // 0 when the CPU is not a known hybrid design
}

// Detect reads the host CPU description
func Detect() Spec {
	return Spec{
		BrandName:        cpuid.CPU.BrandName,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PhysicalCores:    cpuid.CPU.PhysicalCores,
		PerformanceCores: performanceCores(cpuid.CPU.BrandName),
	}
}

// InferenceThreads returns the default interpreter thread count. Hybrid
// CPUs use their performance cores only; elsewhere SMT siblings are
// skipped. The result never exceeds runtime.NumCPU, which honours
// container CPU limits.
func (s Spec) InferenceThreads() int {
	threads := s.PerformanceCores
	if threads <= 0 {
		threads = s.PhysicalCores
	}
	if threads <= 0 {
		threads = s.LogicalCores
	}
	return max(1, min(threads, runtime.NumCPU()))
}

var (
	intelCorePattern  = regexp.MustCompile(`core.*i[3579]-(1[234]\d)00`)
	intelUltraPattern = regexp.MustCompile(`core.*ultra\s+[579]\s+(?:processor\s+)?(2\d5)`)
	applePattern      = regexp.MustCompile(`apple\s+(m[1-4](?:\s+(?:pro|max|ultra))?)`)
)

// P-core counts keyed by the model number prefix of Intel 12th to 14th
// generation desktop parts
var intelPCores = map[string]int{
	"129": 8, "127": 8, "126": 6, "125": 6, "124": 6, "121": 4,
	"139": 8, "137": 8, "136": 6, "135": 6, "134": 6, "131": 4,
	"149": 8, "147": 8, "146": 6, "145": 6, "144": 6, "141": 4,
}

var intelUltraPCores = map[string]int{
	"285": 8, "265": 8, "255": 8, "245": 6, "235": 6, "225": 4,
}

var applePCores = map[string]int{
	"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
	"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
	"m3": 4, "m3 pro": 6, "m3 max": 12, "m3 ultra": 24,
	"m4": 4, "m4 pro": 10, "m4 max": 12,
}

func performanceCores(brandName string) int {
	brand := strings.ToLower(brandName)

	if m := intelCorePattern.FindStringSubmatch(brand); m != nil {
		return intelPCores[m[1]]
	}
	if m := intelUltraPattern.FindStringSubmatch(brand); m != nil {
		return intelUltraPCores[m[1]]
	}
	if m := applePattern.FindStringSubmatch(brand); m != nil {
		return applePCores[strings.Join(strings.Fields(m[1]), " ")]
	}
	return 0
}
