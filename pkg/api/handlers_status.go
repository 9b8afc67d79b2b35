package api

import (
	"net/http"

	"github.com/xepoctpat/H3X-sub004/pkg/graphql"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Get(func() {
			s.respondJSON(w, http.StatusOK, StatusResponse{
				Version:   s.version,
				StartedAt: s.startTime.Unix(),
				WSClients: s.hub.clientCount(),
				Engine:    s.engine.Statistics(),
			})
		}).
		NotAllowed()
}

// handleGraphQL forwards to the GraphQL handler with the caller's
// clearance on the context, so audit queries inside a document stay
// level-gated.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	clearance := principalFrom(r.Context()).Clearance
	ctx := graphql.ContextWithClearance(r.Context(), clearance)
	s.gqlHandler.ServeHTTP(w, r.WithContext(ctx))
}
