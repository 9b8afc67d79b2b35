package api

import (
	"net/http"
	"testing"

	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
)

func TestAPI_CreatePatch(t *testing.T) {
	server := setupTestServer(t)
	eng := server.engine

	a, _ := eng.CreateNode(lattice.KindPositive, geometry.Vec3{X: 1}, 1.0)
	b, _ := eng.CreateNode(lattice.KindNegative, geometry.Vec3{Y: 1}, 1.0)
	c, _ := eng.CreateNode(lattice.KindCoupler, geometry.Vec3{Z: 1}, 1.0)

	rr := doRequest(t, server, http.MethodPost, "/api/patches", CreatePatchRequest{
		NodeIDs: []string{a.ID, b.ID, c.ID},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var patch lattice.Patch
	decodeResponse(t, rr, &patch)
	if patch.ID == "" {
		t.Error("Created patch has no ID")
	}
	if patch.NodeIDs != [3]string{a.ID, b.ID, c.ID} {
		t.Errorf("Expected node IDs %v, got %v", [3]string{a.ID, b.ID, c.ID}, patch.NodeIDs)
	}
	if patch.TotalEnergy != 3.0 {
		t.Errorf("Expected pooled energy 3.0, got %f", patch.TotalEnergy)
	}
	if !patch.Active {
		t.Error("New patch should be active")
	}
}

func TestAPI_CreatePatch_Validation(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{
			name:     "two nodes only",
			body:     CreatePatchRequest{NodeIDs: []string{seeded.Positive, seeded.Negative}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "duplicate nodes",
			body:     CreatePatchRequest{NodeIDs: []string{seeded.Positive, seeded.Positive, seeded.Coupler}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown node",
			body:     CreatePatchRequest{NodeIDs: []string{seeded.Positive, seeded.Negative, "ghost"}},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, http.MethodPost, "/api/patches", tt.body)
			if rr.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d, body: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAPI_GetPatch(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	rr := doRequest(t, server, http.MethodGet, "/api/patches/"+seeded.PatchID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var patch lattice.Patch
	decodeResponse(t, rr, &patch)
	if patch.ID != seeded.PatchID {
		t.Errorf("Expected patch %s, got %s", seeded.PatchID, patch.ID)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/patches/no-such-patch", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestAPI_ListPatches(t *testing.T) {
	server, _ := setupTestServerWithData(t)

	rr := doRequest(t, server, http.MethodGet, "/api/patches", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp PatchesResponse
	decodeResponse(t, rr, &resp)
	if resp.Count != 1 {
		t.Errorf("Expected 1 patch, got %d", resp.Count)
	}
}

func TestAPI_MirrorPatch(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	rr := doRequest(t, server, http.MethodPost, "/api/patches/"+seeded.PatchID+"/mirror", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp MirrorPatchResponse
	decodeResponse(t, rr, &resp)
	if !resp.Mirrored {
		t.Fatal("Expected mirrored=true")
	}
	if resp.Patch == nil {
		t.Fatal("Mirror response carries no patch")
	}
	if !resp.Patch.IsMirror {
		t.Error("Mirror patch should be flagged as mirror")
	}
	if resp.Patch.MirrorPatchID != seeded.PatchID {
		t.Errorf("Mirror should link back to %s, got %s", seeded.PatchID, resp.Patch.MirrorPatchID)
	}

	// Mirroring the mirror is a no-op, not an error
	rr = doRequest(t, server, http.MethodPost, "/api/patches/"+resp.Patch.ID+"/mirror", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Mirror of mirror: expected 200, got %d", rr.Code)
	}
	var again MirrorPatchResponse
	decodeResponse(t, rr, &again)
	if again.Mirrored {
		t.Error("Mirror of mirror should report mirrored=false")
	}
}

func TestAPI_MirrorPatch_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.EnableMirroring = false
	server := setupTestServerWithConfig(t, cfg)
	eng := server.engine

	a, _ := eng.CreateNode(lattice.KindPositive, geometry.Vec3{X: 1}, 1.0)
	b, _ := eng.CreateNode(lattice.KindNegative, geometry.Vec3{Y: 1}, 1.0)
	c, _ := eng.CreateNode(lattice.KindCoupler, geometry.Vec3{Z: 1}, 1.0)
	patch, err := eng.CreatePatch(a.ID, b.ID, c.ID)
	if err != nil {
		t.Fatalf("Failed to create patch: %v", err)
	}

	// Switched off mirroring reports absent, same shape as mirror-of-mirror
	rr := doRequest(t, server, http.MethodPost, "/api/patches/"+patch.ID+"/mirror", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 with mirroring disabled, got %d, body: %s", rr.Code, rr.Body.String())
	}
	var resp MirrorPatchResponse
	decodeResponse(t, rr, &resp)
	if resp.Mirrored {
		t.Error("Disabled mirroring should report mirrored=false")
	}
	if resp.Patch != nil {
		t.Error("Disabled mirroring should carry no patch")
	}
}

func TestAPI_MapPatch(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	// Before mapping there is nothing cached
	rr := doRequest(t, server, http.MethodGet, "/api/patches/"+seeded.PatchID+"/mapping", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 before mapping, got %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/patches/"+seeded.PatchID+"/mapping", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var mapping geometry.MappingResult
	decodeResponse(t, rr, &mapping)
	if mapping.PatchID != seeded.PatchID {
		t.Errorf("Expected mapping for %s, got %s", seeded.PatchID, mapping.PatchID)
	}
	if mapping.Face < 0 || mapping.Face >= geometry.Faces {
		t.Errorf("Face %d out of range", mapping.Face)
	}
	// Equal energies spread perfectly
	if mapping.Quality != 1.0 {
		t.Errorf("Expected quality 1.0 for equal energies, got %f", mapping.Quality)
	}
	if !mapping.Valid {
		t.Error("Expected a valid mapping")
	}

	// The mapping is now cached and readable
	rr = doRequest(t, server, http.MethodGet, "/api/patches/"+seeded.PatchID+"/mapping", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 after mapping, got %d", rr.Code)
	}
	var cached geometry.MappingResult
	decodeResponse(t, rr, &cached)
	if cached.Face != mapping.Face {
		t.Errorf("Cached face %d differs from computed %d", cached.Face, mapping.Face)
	}
}

func TestAPI_MapPatch_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.EnablePhiMapping = false
	server := setupTestServerWithConfig(t, cfg)
	eng := server.engine

	a, _ := eng.CreateNode(lattice.KindPositive, geometry.Vec3{X: 1}, 1.0)
	b, _ := eng.CreateNode(lattice.KindNegative, geometry.Vec3{Y: 1}, 1.0)
	c, _ := eng.CreateNode(lattice.KindCoupler, geometry.Vec3{Z: 1}, 1.0)
	patch, err := eng.CreatePatch(a.ID, b.ID, c.ID)
	if err != nil {
		t.Fatalf("Failed to create patch: %v", err)
	}

	rr := doRequest(t, server, http.MethodPost, "/api/patches/"+patch.ID+"/mapping", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with mapping disabled, got %d", rr.Code)
	}
}

func TestAPI_ListMappings(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	rr := doRequest(t, server, http.MethodGet, "/api/mappings", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var empty MappingsResponse
	decodeResponse(t, rr, &empty)
	if empty.Count != 0 {
		t.Errorf("Expected no mappings yet, got %d", empty.Count)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/patches/"+seeded.PatchID+"/mapping", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Failed to map patch: %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/mappings", nil)
	var resp MappingsResponse
	decodeResponse(t, rr, &resp)
	if resp.Count != 1 {
		t.Errorf("Expected 1 mapping, got %d", resp.Count)
	}
}
