package api

import (
	"net/http"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
)

// actionFromRequest builds the pending action. The engine validator
// owns the semantic checks so its rejections land in the audit trail.
func actionFromRequest(req *ActionRequest) *action.Action {
	var a *action.Action
	if action.Type(req.Type) == action.TypeReflect {
		a = action.NewReflect(req.SourceID, req.PatchID, req.Cost, req.Duration)
	} else {
		a = action.New(action.Type(req.Type), req.SourceID, req.TargetID, req.Cost, req.Duration)
	}
	a.Payload = req.Payload
	return a
}

// handleActions submits one action for immediate execution. Rejections
// are part of the contract: they come back 200 with Executed false and
// the reason, mirroring the engine's failed-result semantics.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Post(func() { s.submitAction(w, r) }).
		NotAllowed()
}

func (s *Server) submitAction(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	var req ActionRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	result, err := s.engine.SubmitAction(actionFromRequest(&req))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleActionValidate runs validation without executing. The verdict
// is audited but no attempt is counted and the clock does not move.
func (s *Server) handleActionValidate(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Post(func() { s.validateAction(w, r) }).
		NotAllowed()
}

func (s *Server) validateAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	verdict, err := s.engine.ValidateAction(actionFromRequest(&req))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Get(func() { s.listQueue(w, r) }).
		Post(func() { s.enqueueAction(w, r) }).
		NotAllowed()
}

func (s *Server) listQueue(w http.ResponseWriter, _ *http.Request) {
	actions := s.engine.QueuedActions()
	s.respondJSON(w, http.StatusOK, QueueResponse{Actions: actions, Depth: len(actions)})
}

func (s *Server) enqueueAction(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	var req ActionRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	a := actionFromRequest(&req)
	if err := s.engine.EnqueueAction(a); err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, a)
}

func (s *Server) handleQueueDrain(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Post(func() { s.drainQueue(w, r) }).
		NotAllowed()
}

func (s *Server) drainQueue(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, audit.LevelRestricted) {
		return
	}

	results, err := s.engine.DrainQueue()
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	resp := DrainResponse{Results: results}
	for _, res := range results {
		if res.Executed {
			resp.Executed++
		} else {
			resp.Rejected++
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}
