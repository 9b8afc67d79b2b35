package api

import (
	"net/http"

	"github.com/xepoctpat/H3X-sub004/pkg/audit"
)

func (s *Server) handlePatches(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Get(func() { s.listPatches(w, r) }).
		Post(func() { s.createPatch(w, r) }).
		NotAllowed()
}

func (s *Server) listPatches(w http.ResponseWriter, _ *http.Request) {
	patches := s.engine.ListPatches()
	s.respondJSON(w, http.StatusOK, PatchesResponse{Patches: patches, Count: len(patches)})
}

func (s *Server) createPatch(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	var req CreatePatchRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	patch, err := s.engine.CreatePatch(req.NodeIDs[0], req.NodeIDs[1], req.NodeIDs[2])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, patch)
}

// handlePatch covers /api/patches/{id} and its subresources: mirror,
// mapping.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := entityPath(r.URL.Path, "/api/patches/")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "Missing patch ID")
		return
	}

	switch sub {
	case "":
		s.route(w, r).
			Get(func() { s.getPatch(w, r, id) }).
			NotAllowed()
	case "mirror":
		s.route(w, r).
			Post(func() { s.mirrorPatch(w, r, id) }).
			NotAllowed()
	case "mapping":
		s.route(w, r).
			Get(func() { s.getMapping(w, r, id) }).
			Post(func() { s.mapPatch(w, r, id) }).
			NotAllowed()
	default:
		s.respondError(w, http.StatusNotFound, "Unknown patch resource")
	}
}

func (s *Server) getPatch(w http.ResponseWriter, _ *http.Request, id string) {
	patch, ok := s.engine.GetPatch(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Patch not found")
		return
	}
	s.respondJSON(w, http.StatusOK, patch)
}

func (s *Server) mirrorPatch(w http.ResponseWriter, r *http.Request, id string) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	mirror, mirrored, err := s.engine.CreateMirrorPatch(id)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if !mirrored {
		// Mirror of a mirror, or mirroring switched off: valid request,
		// nothing to create
		s.respondJSON(w, http.StatusOK, MirrorPatchResponse{Mirrored: false})
		return
	}
	s.respondJSON(w, http.StatusCreated, MirrorPatchResponse{Mirrored: true, Patch: mirror})
}

func (s *Server) mapPatch(w http.ResponseWriter, r *http.Request, id string) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	mapping, err := s.engine.MapPatch(id)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, mapping)
}

func (s *Server) getMapping(w http.ResponseWriter, _ *http.Request, id string) {
	mapping, found := s.engine.GetMapping(id)
	if !found {
		s.respondError(w, http.StatusNotFound, "No mapping for patch")
		return
	}
	s.respondJSON(w, http.StatusOK, mapping)
}
