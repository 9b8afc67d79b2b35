package api

import "net/http"

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Get(func() { s.listMappings(w, r) }).
		NotAllowed()
}

func (s *Server) listMappings(w http.ResponseWriter, _ *http.Request) {
	mappings := s.engine.ListMappings()
	s.respondJSON(w, http.StatusOK, MappingsResponse{Mappings: mappings, Count: len(mappings)})
}

// handleMapping serves /api/mappings/{patch_id}: the cached projection
// for one patch. Recomputation goes through POST /api/patches/{id}/mapping.
func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := entityPath(r.URL.Path, "/api/mappings/")
	if !ok || sub != "" {
		s.respondError(w, http.StatusBadRequest, "Missing mapping ID")
		return
	}

	s.route(w, r).
		Get(func() {
			mapping, found := s.engine.GetMapping(id)
			if !found {
				s.respondError(w, http.StatusNotFound, "No mapping for patch")
				return
			}
			s.respondJSON(w, http.StatusOK, mapping)
		}).
		NotAllowed()
}
