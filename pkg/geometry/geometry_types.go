package geometry

// Vec3 is a point in lattice space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MirrorX reflects the point across the YZ plane. Mirror lattice positions
// flip exactly one axis.
func (v Vec3) MirrorX() Vec3 {
	return Vec3{X: -v.X, Y: v.Y, Z: v.Z}
}

// Centroid returns the arithmetic center of three points.
func Centroid(a, b, c Vec3) Vec3 {
	return Vec3{
		X: (a.X + b.X + c.X) / 3,
		Y: (a.Y + b.Y + c.Y) / 3,
		Z: (a.Z + b.Z + c.Z) / 3,
	}
}

// Barycentric is a weight triple over a patch's three nodes. The weights
// always sum to 1.
type Barycentric struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
	W float64 `json:"w"`
}

// MappingResult is the outcome of projecting one patch onto the indexed
// icosahedral layout. Transform is reserved and always the identity; callers
// must not interpret it as a real rotation.
type MappingResult struct {
	PatchID     string        `json:"patch_id"`
	Face        int           `json:"face"`
	Barycentric Barycentric   `json:"barycentric"`
	PhiScale    float64       `json:"phi_scale"`
	Position    Vec3          `json:"position"`
	Quality     float64       `json:"quality"`
	Valid       bool          `json:"valid"`
	Transform   [4][4]float64 `json:"transform"`
}
