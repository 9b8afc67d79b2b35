package geometry

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestMappingInvariants verifies the pipeline guarantees that hold for any
// patch input, not just the hand-picked cases.
func TestMappingInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	energyGen := gen.Float64Range(0, 5)
	kinds := [3]string{"positive", "negative", "coupler"}

	properties.Property("barycentric weights sum to 1", prop.ForAll(
		func(e1, e2, e3 float64) bool {
			w := Weights(e1, e2, e3)
			return math.Abs(w.U+w.V+w.W-1.0) < 1e-9
		},
		energyGen, energyGen, energyGen,
	))

	properties.Property("face index stays in range", prop.ForAll(
		func(id string) bool {
			face := FaceIndex(id, kinds)
			return face >= 0 && face < Faces
		},
		gen.AlphaString(),
	))

	properties.Property("mapping is deterministic", prop.ForAll(
		func(id string, e1, e2, e3 float64) bool {
			energies := [3]float64{e1, e2, e3}
			first := Map(id, kinds, energies)
			second := Map(id, kinds, energies)
			return first == second
		},
		gen.AlphaString(), energyGen, energyGen, energyGen,
	))

	properties.Property("quality stays within [0,1]", prop.ForAll(
		func(e1, e2, e3 float64) bool {
			q := Quality(e1, e2, e3)
			return q >= 0 && q <= 1
		},
		energyGen, energyGen, energyGen,
	))

	properties.Property("projection radius never exceeds the φ-scale", prop.ForAll(
		func(id string, e1, e2, e3 float64) bool {
			result := Map(id, kinds, [3]float64{e1, e2, e3})
			r := math.Sqrt(result.Position.X*result.Position.X +
				result.Position.Y*result.Position.Y +
				result.Position.Z*result.Position.Z)
			// Non-negative weights sum to 1, so the damped point stays
			// inside the sphere of radius scale.
			return r <= result.PhiScale+1e-9
		},
		gen.AlphaString(), energyGen, energyGen, energyGen,
	))

	properties.TestingRun(t)
}
