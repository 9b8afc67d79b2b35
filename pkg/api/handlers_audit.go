package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

const defaultAuditLimit = 100

// handleAudit lists audit entries. Filters come from query params;
// entries above the caller's clearance are silently withheld rather
// than erroring, so a public caller sees a public trail.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).
		Get(func() { s.queryAudit(w, r) }).
		NotAllowed()
}

func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	clearance := principalFrom(r.Context()).Clearance
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries := s.engine.AuditQuery(filter, clearance)
	s.respondJSON(w, http.StatusOK, AuditResponse{
		Entries:   entries,
		Count:     len(entries),
		Clearance: clearance.String(),
	})
}

// auditFilterFromQuery maps query params onto an audit filter. Unknown
// params are ignored; malformed numeric or time values are errors.
func auditFilterFromQuery(r *http.Request) (*audit.Filter, error) {
	q := r.URL.Query()
	filter := &audit.Filter{
		Category:   audit.Category(q.Get("category")),
		EntityKind: audit.EntityKind(q.Get("entity_kind")),
		EntityID:   q.Get("entity_id"),
		Status:     audit.Status(q.Get("status")),
		Limit:      defaultAuditLimit,
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	if v := q.Get("since_sequence"); v != "" {
		seq, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, err
		}
		filter.SinceSequence = seq
	}
	if v := q.Get("min_level"); v != "" {
		filter.MinLevel = audit.ParseSecurityLevel(v)
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filter.StartTime = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filter.EndTime = &t
	}
	return filter, nil
}

// handleAuditExport streams the trail in the requested format. The
// caller's clearance caps what leaves the server; compress=true wraps
// the stream in snappy framing.
func (s *Server) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	clearance := principalFrom(r.Context()).Clearance
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Export is bounded by the filter, not the list default
	if r.URL.Query().Get("limit") == "" {
		filter.Limit = 0
	}

	opts := &audit.ExportOptions{
		Format:   audit.FormatJSONL,
		Filter:   filter,
		MaxLevel: clearance,
		Pretty:   r.URL.Query().Get("pretty") == "true",
		Compress: r.URL.Query().Get("compress") == "true",
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "jsonl":
		// default
	case "json":
		opts.Format = audit.FormatJSON
	case "csv":
		opts.Format = audit.FormatCSV
	default:
		s.respondError(w, http.StatusBadRequest, "Unknown export format")
		return
	}

	w.Header().Set("Content-Type", exportContentType(opts))
	w.Header().Set("Content-Disposition", "attachment; filename=audit"+exportExtension(opts))
	if err := s.engine.ExportAudit(w, opts, clearance); err != nil {
		// Headers are out; all that is left is to log
		s.logger.Error("audit export failed", logging.Error(err))
	}
}

func exportContentType(opts *audit.ExportOptions) string {
	if opts.Compress {
		return "application/octet-stream"
	}
	switch opts.Format {
	case audit.FormatCSV:
		return "text/csv"
	case audit.FormatJSON:
		return "application/json"
	default:
		return "application/x-ndjson"
	}
}

func exportExtension(opts *audit.ExportOptions) string {
	ext := "." + string(opts.Format)
	if opts.Compress {
		ext += ".sz"
	}
	return ext
}
