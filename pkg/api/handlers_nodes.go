package api

import (
	"net/http"

	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
)

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Get(func() { s.listNodes(w, r) }).
		Post(func() { s.createNode(w, r) }).
		NotAllowed()
}

func (s *Server) listNodes(w http.ResponseWriter, _ *http.Request) {
	nodes := s.engine.ListNodes()
	s.respondJSON(w, http.StatusOK, NodesResponse{Nodes: nodes, Count: len(nodes)})
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	var req CreateNodeRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	node, err := s.engine.CreateNode(lattice.NodeKind(req.Kind), req.Position, req.Energy)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, node)
}

// handleNode covers /api/nodes/{id} and its subresources: adjacency,
// state, mirror.
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := entityPath(r.URL.Path, "/api/nodes/")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "Missing node ID")
		return
	}

	switch sub {
	case "":
		s.route(w, r).
			Get(func() { s.getNode(w, r, id) }).
			NotAllowed()
	case "adjacency":
		s.route(w, r).
			Get(func() { s.getAdjacency(w, r, id) }).
			NotAllowed()
	case "state":
		s.route(w, r).
			Put(func() { s.setNodeState(w, r, id) }).
			NotAllowed()
	case "mirror":
		s.route(w, r).
			Post(func() { s.mirrorNode(w, r, id) }).
			NotAllowed()
	default:
		s.respondError(w, http.StatusNotFound, "Unknown node resource")
	}
}

func (s *Server) getNode(w http.ResponseWriter, _ *http.Request, id string) {
	node, ok := s.engine.GetNode(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Node not found")
		return
	}
	s.respondJSON(w, http.StatusOK, node)
}

func (s *Server) getAdjacency(w http.ResponseWriter, _ *http.Request, id string) {
	if _, ok := s.engine.GetNode(id); !ok {
		s.respondError(w, http.StatusNotFound, "Node not found")
		return
	}
	neighbors := s.engine.Adjacency(id)
	s.respondJSON(w, http.StatusOK, AdjacencyResponse{
		NodeID:    id,
		Neighbors: neighbors,
		Count:     len(neighbors),
	})
}

func (s *Server) setNodeState(w http.ResponseWriter, r *http.Request, id string) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	var req SetNodeStateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	node, err := s.engine.SetNodeState(id, lattice.NodeState(req.State))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, node)
}

func (s *Server) mirrorNode(w http.ResponseWriter, r *http.Request, id string) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	mirror, err := s.engine.CreateMirrorNode(id)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, mirror)
}
