package metrics

import "github.com/tutu-network/swarmd/internal/domain"

// MemoryStateValue maps a MemoryState onto the gauge encoding documented
// on MemoryState's Help string.
func MemoryStateValue(s domain.MemoryState) float64 {
	switch s {
	case domain.MemoryElevated:
		return 1
	case domain.MemoryCritical:
		return 2
	default:
		return 0
	}
}

// HealthStatusValue maps a HealthStatus onto the gauge encoding
// documented on HealthOverall's Help string.
func HealthStatusValue(s domain.HealthStatus) float64 {
	switch s {
	case domain.HealthWarn:
		return 1
	case domain.HealthFail:
		return 2
	default:
		return 0
	}
}
