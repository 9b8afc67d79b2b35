package health

import "time"

// Common health check functions

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// EngineCheck creates a health check for engine responsiveness
func EngineCheck(ping func() error) CheckFunc {
	return func() Check {
		check := Check{
			Name: "engine",
		}

		if err := ping(); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Responsive"
		}

		return check
	}
}

// LatticeCapacityCheck creates a health check for lattice occupancy
func LatticeCapacityCheck(getUsage func() (nodes, maxNodes, patches, maxPatches int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "lattice_capacity",
			Details: make(map[string]any),
		}

		nodes, maxNodes, patches, maxPatches := getUsage()

		nodePercent := float64(nodes) / float64(maxNodes) * 100
		patchPercent := float64(patches) / float64(maxPatches) * 100
		usagePercent := nodePercent
		if patchPercent > usagePercent {
			usagePercent = patchPercent
		}

		check.Details["nodes"] = nodes
		check.Details["max_nodes"] = maxNodes
		check.Details["patches"] = patches
		check.Details["max_patches"] = maxPatches
		check.Details["usage_percent"] = usagePercent

		if usagePercent > 95 {
			check.Status = StatusUnhealthy
			check.Message = "Lattice nearly full"
		} else if usagePercent > 80 {
			check.Status = StatusDegraded
			check.Message = "Lattice filling up"
		} else {
			check.Status = StatusHealthy
			check.Message = "Capacity available"
		}

		return check
	}
}

// QueueCheck creates a health check for action queue depth
func QueueCheck(getDepth func() int, softLimit, hardLimit int) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "action_queue",
			Details: make(map[string]any),
		}

		depth := getDepth()

		check.Details["depth"] = depth
		check.Details["soft_limit"] = softLimit
		check.Details["hard_limit"] = hardLimit

		if depth >= hardLimit {
			check.Status = StatusUnhealthy
			check.Message = "Queue backed up"
		} else if depth >= softLimit {
			check.Status = StatusDegraded
			check.Message = "Queue building"
		} else {
			check.Status = StatusHealthy
			check.Message = "Queue draining"
		}

		return check
	}
}

// AuditCheck creates a health check for audit trail pressure
func AuditCheck(getState func() (retained, cap int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "audit_trail",
			Details: make(map[string]any),
		}

		retained, cap := getState()

		check.Details["retained"] = retained
		check.Details["cap"] = cap

		if retained >= cap {
			check.Status = StatusDegraded
			check.Message = "Ring at capacity, oldest entries rotating out"
		} else {
			check.Status = StatusHealthy
			check.Message = "Ring has headroom"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		// Consider degraded if allocated memory > 90% of system memory
		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
