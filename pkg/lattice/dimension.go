package lattice

// Workload-adaptive dimensional switching. Each node normally lives in
// 2D; sustained high workload lifts it to 4D, and a quiet spell drops it
// back. The dimension is purely observational state: validation and
// execution never read it.
const (
	workloadThreshold = 0.7
	overloadLimit     = 3
	baseDimension     = 2
	liftedDimension   = 4
)

// observeWorkload feeds one workload sample into the node's saturating
// overload counter and switches its dimension at the edges: counter past
// the limit lifts to 4D, counter back at zero settles to 2D.
func (n *Node) observeWorkload(sample float64) {
	if sample > workloadThreshold {
		n.Overload++
	} else if n.Overload > 0 {
		n.Overload--
	}

	if n.Overload > overloadLimit {
		n.Dimension = liftedDimension
	} else if n.Overload == 0 {
		n.Dimension = baseDimension
	}
}
