package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondEngineError maps engine errors onto HTTP statuses: not-found
// to 404, capacity to 409, closed engine and disabled features to 503.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lattice.ErrNodeNotFound), errors.Is(err, lattice.ErrPatchNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lattice.ErrCapacityExceeded):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lattice.ErrInvalidKind), errors.Is(err, lattice.ErrDuplicateNodes):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrEngineClosed),
		errors.Is(err, engine.ErrMirroringDisabled),
		errors.Is(err, engine.ErrMappingDisabled):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeValid decodes a JSON body into v and runs struct validation.
// On failure it writes the error response and returns false.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			s.respondError(w, http.StatusBadRequest,
				fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()))
			return false
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// entityPath splits "/api/<kind>/{id}[/sub]" into its id and optional
// subresource. ok is false when there is no id segment.
func entityPath(path, prefix string) (id, sub string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" {
		return "", "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return parts[0], "", true
}

// methodRouter routes one request by HTTP method, a cleaner shape than
// a switch in every handler.
type methodRouter struct {
	w       http.ResponseWriter
	r       *http.Request
	server  *Server
	handled bool
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) *methodRouter {
	return &methodRouter{w: w, r: r, server: s}
}

func (mr *methodRouter) Get(handler func()) *methodRouter {
	if !mr.handled && mr.r.Method == http.MethodGet {
		handler()
		mr.handled = true
	}
	return mr
}

func (mr *methodRouter) Post(handler func()) *methodRouter {
	if !mr.handled && mr.r.Method == http.MethodPost {
		handler()
		mr.handled = true
	}
	return mr
}

func (mr *methodRouter) Put(handler func()) *methodRouter {
	if !mr.handled && mr.r.Method == http.MethodPut {
		handler()
		mr.handled = true
	}
	return mr
}

func (mr *methodRouter) NotAllowed() {
	if !mr.handled {
		mr.server.respondError(mr.w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
