package api

import (
	"encoding/json"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/auth"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/health"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
	"github.com/xepoctpat/H3X-sub004/pkg/metrics"
)

// maxRequestBytes caps request bodies. Engine requests are small; the
// largest legitimate payload is an action's opaque payload blob.
const maxRequestBytes = 1 << 20 // 1 MB

// Options wires a Server's collaborators. Engine is required; nil
// Logger, Metrics, and Health fall back to a nop logger, no metrics,
// and a fresh checker.
type Options struct {
	Config    config.ServerConfig
	Engine    *engine.Engine
	Logger    logging.Logger
	Metrics   *metrics.Registry
	Health    *health.HealthChecker
	Operators *auth.OperatorStore
	APIKeys   *auth.APIKeyStore
	Version   string
}

// Request bodies

// CreateNodeRequest creates one lattice node. Semantic checks beyond
// shape (capacity, energy bounds) belong to the engine, which audits
// its own rejections.
type CreateNodeRequest struct {
	Kind     string        `json:"kind" validate:"required,oneof=positive negative coupler"`
	Position geometry.Vec3 `json:"position"`
	Energy   float64       `json:"energy" validate:"gte=0"`
}

// CreatePatchRequest spans a triangle over three node IDs.
type CreatePatchRequest struct {
	NodeIDs []string `json:"node_ids" validate:"required,len=3,dive,required"`
}

// SetNodeStateRequest forces a node into a state.
type SetNodeStateRequest struct {
	State string `json:"state" validate:"required,oneof=idle transmitting receiving processing"`
}

// ActionRequest proposes one action. Only the shape is validated here;
// cost, duration, and node semantics go through the engine validator so
// rejections reach the audit trail.
type ActionRequest struct {
	Type     string          `json:"type" validate:"required,oneof=transmit process receive feedback reflect"`
	SourceID string          `json:"source_id" validate:"required"`
	TargetID string          `json:"target_id,omitempty"`
	PatchID  string          `json:"patch_id,omitempty"`
	Cost     float64         `json:"cost"`
	Duration uint64          `json:"duration"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Response bodies

// ErrorResponse is the uniform error shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Version   string              `json:"version"`
	StartedAt int64               `json:"started_at"`
	WSClients int                 `json:"ws_clients"`
	Engine    engine.EngineStatus `json:"engine"`
}

// NodesResponse lists nodes with their count.
type NodesResponse struct {
	Nodes []*lattice.Node `json:"nodes"`
	Count int             `json:"count"`
}

// PatchesResponse lists patches with their count.
type PatchesResponse struct {
	Patches []*lattice.Patch `json:"patches"`
	Count   int              `json:"count"`
}

// AdjacencyResponse lists a node's neighbors.
type AdjacencyResponse struct {
	NodeID    string   `json:"node_id"`
	Neighbors []string `json:"neighbors"`
	Count     int      `json:"count"`
}

// MirrorPatchResponse reports a mirror-patch attempt. Mirrored is false
// when the target is itself a mirror, which never mirrors again.
type MirrorPatchResponse struct {
	Mirrored bool           `json:"mirrored"`
	Patch    *lattice.Patch `json:"patch,omitempty"`
}

// QueueResponse lists the pending queue.
type QueueResponse struct {
	Actions []*action.Action `json:"actions"`
	Depth   int              `json:"depth"`
}

// DrainResponse reports one queue drain.
type DrainResponse struct {
	Results  []action.Result `json:"results"`
	Executed int             `json:"executed"`
	Rejected int             `json:"rejected"`
}

// MappingsResponse lists cached φ-mappings.
type MappingsResponse struct {
	Mappings []*geometry.MappingResult `json:"mappings"`
	Count    int                       `json:"count"`
}

// AuditResponse lists audit entries visible at the caller's clearance.
type AuditResponse struct {
	Entries   []*audit.Entry `json:"entries"`
	Count     int            `json:"count"`
	Clearance string         `json:"clearance"`
}
