// Package geometry provides the pure functions behind φ-mapping: barycentric
// weights from node energies, stable face selection, and the flat circular
// projection onto 20 indexed faces. Nothing here holds state.
package geometry

import (
	"hash/fnv"
	"math"
)

const (
	// Faces is the number of indexed icosahedral faces.
	Faces = 20
	// ValidQuality is the threshold a mapping must exceed to be usable.
	ValidQuality = 0.5
)

// Phi is the golden ratio.
var Phi = (1 + math.Sqrt(5)) / 2

// Weights returns barycentric coordinates proportional to the three energies.
// A zero-energy triple degenerates to the uniform weighting.
func Weights(e1, e2, e3 float64) Barycentric {
	total := e1 + e2 + e3
	if total == 0 {
		third := 1.0 / 3.0
		return Barycentric{U: third, V: third, W: third}
	}
	return Barycentric{U: e1 / total, V: e2 / total, W: e3 / total}
}

// FaceIndex selects one of the 20 faces for a patch. Stable across runs:
// FNV-1a over the patch id and the three node kinds, reduced modulo 20.
func FaceIndex(patchID string, kinds [3]string) int {
	h := fnv.New32a()
	h.Write([]byte(patchID))
	for _, k := range kinds {
		h.Write([]byte(k))
	}
	return int(h.Sum32() % Faces)
}

// PhiScale grows the projection radius with the total energy of the triple.
func PhiScale(totalEnergy float64) float64 {
	return Phi * (1 + totalEnergy/100)
}

// Project places the patch on a circle of radius scale at the face's angle,
// each axis damped by its barycentric weight. This is a flat approximation,
// not a true icosahedral embedding.
func Project(face int, w Barycentric, scale float64) Vec3 {
	angle := float64(face) * (2 * math.Pi / Faces)
	return Vec3{
		X: scale * math.Cos(angle) * w.U,
		Y: scale * math.Sin(angle) * w.V,
		Z: scale * w.W,
	}
}

// Quality scores how evenly energy is spread across the triple: 1 minus the
// population variance of the three energies, floored at 0.
func Quality(e1, e2, e3 float64) float64 {
	mean := (e1 + e2 + e3) / 3
	variance := ((e1-mean)*(e1-mean) + (e2-mean)*(e2-mean) + (e3-mean)*(e3-mean)) / 3
	q := 1 - variance
	if q < 0 {
		return 0
	}
	return q
}

// Map runs the full pipeline over plain inputs: weights, face, scale,
// projection, quality. Deterministic for identical inputs.
func Map(patchID string, kinds [3]string, energies [3]float64) MappingResult {
	total := energies[0] + energies[1] + energies[2]
	w := Weights(energies[0], energies[1], energies[2])
	face := FaceIndex(patchID, kinds)
	scale := PhiScale(total)
	q := Quality(energies[0], energies[1], energies[2])

	return MappingResult{
		PatchID:     patchID,
		Face:        face,
		Barycentric: w,
		PhiScale:    scale,
		Position:    Project(face, w, scale),
		Quality:     q,
		Valid:       q > ValidQuality,
		Transform:   IdentityTransform(),
	}
}

// Invalid returns the zero-quality result used when a patch cannot be
// resolved. Never an error: mapping failures degrade, they do not raise.
func Invalid(patchID string) MappingResult {
	return MappingResult{PatchID: patchID, Transform: IdentityTransform()}
}

// IdentityTransform returns the reserved 4x4 transform matrix.
func IdentityTransform() [4][4]float64 {
	var m [4][4]float64
	for i := range m {
		m[i][i] = 1
	}
	return m
}
