package engine

import (
	"errors"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
	"github.com/xepoctpat/H3X-sub004/pkg/metrics"
)

var (
	// ErrEngineClosed is returned by every operation after Close.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrMirroringDisabled is returned by mirror operations when the
	// mirror lattice is switched off in the config.
	ErrMirroringDisabled = errors.New("mirror lattice is disabled")

	// ErrMappingDisabled is returned by MapPatch when φ-mapping is
	// switched off in the config.
	ErrMappingDisabled = errors.New("phi mapping is disabled")
)

// Options configures a new Engine. Zero values fall back to the
// documented defaults, a nop logger, and no metrics.
type Options struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// EngineStatus is a point-in-time snapshot of the whole engine.
type EngineStatus struct {
	VirtualTime   uint64          `json:"virtual_time"`
	Nodes         int             `json:"nodes"`
	Patches       int             `json:"patches"`
	MirrorNodes   int             `json:"mirror_nodes"`
	MirrorPatches int             `json:"mirror_patches"`
	MemoryBytes   uint64          `json:"memory_bytes"`
	Actions       action.Counters `json:"actions"`
	QueueDepth    int             `json:"queue_depth"`
	Mappings      int             `json:"mappings"`
	AuditRetained int             `json:"audit_retained"`
	AuditAppended uint64          `json:"audit_appended"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Mirroring     bool            `json:"mirroring_enabled"`
	PhiMapping    bool            `json:"phi_mapping_enabled"`
}
