package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
)

// BuildSchema builds the read-only GraphQL schema over a running engine.
// Mutating the lattice stays on the REST surface; the schema only answers
// queries. A nil limits config falls back to DefaultLimits.
func BuildSchema(eng *engine.Engine, limits *LimitConfig) (graphql.Schema, error) {
	if limits == nil {
		limits = DefaultLimits()
	}
	if err := ValidateLimitConfig(limits); err != nil {
		return graphql.Schema{}, err
	}

	vec3Type := buildVec3Type()
	nodeType := buildNodeType(vec3Type)
	patchType := buildPatchType(eng, vec3Type, nodeType)
	statusType := buildStatusType()
	mappingType := buildMappingType(vec3Type)
	auditEntryType := buildAuditEntryType()
	actionType := buildActionType()

	queryFields := graphql.Fields{
		// Always include a health check query
		"health": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return "ok", nil
			},
		},
		"node": &graphql.Field{
			Type: nodeType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{
					Type: graphql.NewNonNull(graphql.ID),
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, ok := p.Args["id"].(string)
				if !ok {
					return nil, fmt.Errorf("id argument is required")
				}
				node, ok := eng.GetNode(id)
				if !ok {
					return nil, nil
				}
				return node, nil
			},
		},
		"nodes": &graphql.Field{
			Type: graphql.NewList(nodeType),
			Args: graphql.FieldConfigArgument{
				"kind": &graphql.ArgumentConfig{
					Type: graphql.String,
				},
				"limit": &graphql.ArgumentConfig{
					Type: graphql.Int,
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				nodes := eng.ListNodes()
				if kindArg, ok := p.Args["kind"].(string); ok && kindArg != "" {
					filtered := make([]*lattice.Node, 0, len(nodes))
					for _, node := range nodes {
						if string(node.Kind) == kindArg {
							filtered = append(filtered, node)
						}
					}
					nodes = filtered
				}
				limit := applyLimit(limitArg(p.Args), limits)
				if limit < len(nodes) {
					nodes = nodes[:limit]
				}
				return nodes, nil
			},
		},
		"patch": &graphql.Field{
			Type: patchType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{
					Type: graphql.NewNonNull(graphql.ID),
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, ok := p.Args["id"].(string)
				if !ok {
					return nil, fmt.Errorf("id argument is required")
				}
				patch, ok := eng.GetPatch(id)
				if !ok {
					return nil, nil
				}
				return patch, nil
			},
		},
		"patches": &graphql.Field{
			Type: graphql.NewList(patchType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{
					Type: graphql.Int,
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				patches := eng.ListPatches()
				limit := applyLimit(limitArg(p.Args), limits)
				if limit < len(patches) {
					patches = patches[:limit]
				}
				return patches, nil
			},
		},
		"status": &graphql.Field{
			Type: statusType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return eng.Statistics(), nil
			},
		},
		"mapping": &graphql.Field{
			Type: mappingType,
			Args: graphql.FieldConfigArgument{
				"patchId": &graphql.ArgumentConfig{
					Type: graphql.NewNonNull(graphql.ID),
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				patchID, ok := p.Args["patchId"].(string)
				if !ok {
					return nil, fmt.Errorf("patchId argument is required")
				}
				result, ok := eng.GetMapping(patchID)
				if !ok {
					return nil, nil
				}
				return result, nil
			},
		},
		"mappings": &graphql.Field{
			Type: graphql.NewList(mappingType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{
					Type: graphql.Int,
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				mappings := eng.ListMappings()
				limit := applyLimit(limitArg(p.Args), limits)
				if limit < len(mappings) {
					mappings = mappings[:limit]
				}
				return mappings, nil
			},
		},
		"queue": &graphql.Field{
			Type: graphql.NewList(actionType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{
					Type: graphql.Int,
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				queued := eng.QueuedActions()
				limit := applyLimit(limitArg(p.Args), limits)
				if limit < len(queued) {
					queued = queued[:limit]
				}
				return queued, nil
			},
		},
		// audit is clearance-gated: entries above the caller's level are
		// withheld. The level arrives via ContextWithClearance.
		"audit": &graphql.Field{
			Type: graphql.NewList(auditEntryType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{
					Type: graphql.Int,
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := applyLimit(limitArg(p.Args), limits)
				clearance := ClearanceFromContext(p.Context)
				return eng.AuditRecent(limit, clearance), nil
			},
		},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: queryFields,
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}

	return schema, nil
}

func buildVec3Type() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Vec3",
		Fields: graphql.Fields{
			"x": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if v, ok := p.Source.(geometry.Vec3); ok {
						return v.X, nil
					}
					return nil, nil
				},
			},
			"y": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if v, ok := p.Source.(geometry.Vec3); ok {
						return v.Y, nil
					}
					return nil, nil
				},
			},
			"z": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if v, ok := p.Source.(geometry.Vec3); ok {
						return v.Z, nil
					}
					return nil, nil
				},
			},
		},
	})
}

func buildNodeType(vec3Type *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return node.ID, nil
					}
					return nil, nil
				},
			},
			"kind": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return string(node.Kind), nil
					}
					return nil, nil
				},
			},
			"state": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return string(node.State), nil
					}
					return nil, nil
				},
			},
			"energy": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return node.Energy, nil
					}
					return nil, nil
				},
			},
			"position": &graphql.Field{
				Type: vec3Type,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return node.Position, nil
					}
					return nil, nil
				},
			},
			"mirrorId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return node.MirrorID, nil
					}
					return nil, nil
				},
			},
			"dimension": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return node.Dimension, nil
					}
					return nil, nil
				},
			},
			"lastActionAt": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(*lattice.Node); ok {
						return int(node.LastActionAt), nil
					}
					return nil, nil
				},
			},
		},
	})
}

func buildPatchType(eng *engine.Engine, vec3Type, nodeType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Patch",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if patch, ok := p.Source.(*lattice.Patch); ok {
						return patch.ID, nil
					}
					return nil, nil
				},
			},
			"nodeIds": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if patch, ok := p.Source.(*lattice.Patch); ok {
						return patch.NodeIDs[:], nil
					}
					return nil, nil
				},
			},
			// nodes resolves the three member nodes live from the engine
			"nodes": &graphql.Field{
				Type: graphql.NewList(nodeType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					patch, ok := p.Source.(*lattice.Patch)
					if !ok {
						return nil, nil
					}
					nodes := make([]*lattice.Node, 0, 3)
					for _, nodeID := range patch.NodeIDs {
						if node, ok := eng.GetNode(nodeID); ok {
							nodes = append(nodes, node)
						}
					}
					return nodes, nil
				},
			},
			"isMirror": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if patch, ok := p.Source.(*lattice.Patch); ok {
						return patch.IsMirror, nil
					}
					return nil, nil
				},
			},
			"mirrorPatchId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if patch, ok := p.Source.(*lattice.Patch); ok {
						return patch.MirrorPatchID, nil
					}
					return nil, nil
				},
			},
			"center": &graphql.Field{
				Type: vec3Type,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if patch, ok := p.Source.(*lattice.Patch); ok {
						return patch.Center, nil
					}
					return nil, nil
				},
			},
			"totalEnergy": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if patch, ok := p.Source.(*lattice.Patch); ok {
						return patch.TotalEnergy, nil
					}
					return nil, nil
				},
			},
			"active": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if patch, ok := p.Source.(*lattice.Patch); ok {
						return patch.Active, nil
					}
					return nil, nil
				},
			},
		},
	})
}

func buildStatusType() *graphql.Object {
	countersType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ActionCounters",
		Fields: graphql.Fields{
			"total": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if c, ok := p.Source.(action.Counters); ok {
						return int(c.Total), nil
					}
					return nil, nil
				},
			},
			"completed": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if c, ok := p.Source.(action.Counters); ok {
						return int(c.Completed), nil
					}
					return nil, nil
				},
			},
			"failed": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if c, ok := p.Source.(action.Counters); ok {
						return int(c.Failed), nil
					}
					return nil, nil
				},
			},
		},
	})

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Status",
		Fields: graphql.Fields{
			"virtualTime": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return int(s.VirtualTime), nil
					}
					return nil, nil
				},
			},
			"nodes": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.Nodes, nil
					}
					return nil, nil
				},
			},
			"patches": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.Patches, nil
					}
					return nil, nil
				},
			},
			"mirrorNodes": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.MirrorNodes, nil
					}
					return nil, nil
				},
			},
			"mirrorPatches": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.MirrorPatches, nil
					}
					return nil, nil
				},
			},
			"memoryBytes": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return int(s.MemoryBytes), nil
					}
					return nil, nil
				},
			},
			"actions": &graphql.Field{
				Type: countersType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.Actions, nil
					}
					return nil, nil
				},
			},
			"queueDepth": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.QueueDepth, nil
					}
					return nil, nil
				},
			},
			"mappings": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.Mappings, nil
					}
					return nil, nil
				},
			},
			"auditRetained": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.AuditRetained, nil
					}
					return nil, nil
				},
			},
			"mirroringEnabled": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.Mirroring, nil
					}
					return nil, nil
				},
			},
			"phiMappingEnabled": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(engine.EngineStatus); ok {
						return s.PhiMapping, nil
					}
					return nil, nil
				},
			},
		},
	})
}

func buildMappingType(vec3Type *graphql.Object) *graphql.Object {
	barycentricType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Barycentric",
		Fields: graphql.Fields{
			"u": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if b, ok := p.Source.(geometry.Barycentric); ok {
						return b.U, nil
					}
					return nil, nil
				},
			},
			"v": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if b, ok := p.Source.(geometry.Barycentric); ok {
						return b.V, nil
					}
					return nil, nil
				},
			},
			"w": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if b, ok := p.Source.(geometry.Barycentric); ok {
						return b.W, nil
					}
					return nil, nil
				},
			},
		},
	})

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mapping",
		Fields: graphql.Fields{
			"patchId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(*geometry.MappingResult); ok {
						return m.PatchID, nil
					}
					return nil, nil
				},
			},
			"face": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(*geometry.MappingResult); ok {
						return m.Face, nil
					}
					return nil, nil
				},
			},
			"barycentric": &graphql.Field{
				Type: barycentricType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(*geometry.MappingResult); ok {
						return m.Barycentric, nil
					}
					return nil, nil
				},
			},
			"phiScale": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(*geometry.MappingResult); ok {
						return m.PhiScale, nil
					}
					return nil, nil
				},
			},
			"position": &graphql.Field{
				Type: vec3Type,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(*geometry.MappingResult); ok {
						return m.Position, nil
					}
					return nil, nil
				},
			},
			"quality": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(*geometry.MappingResult); ok {
						return m.Quality, nil
					}
					return nil, nil
				},
			},
			"valid": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(*geometry.MappingResult); ok {
						return m.Valid, nil
					}
					return nil, nil
				},
			},
		},
	})
}

func buildAuditEntryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "AuditEntry",
		Fields: graphql.Fields{
			"sequence": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return int(e.Sequence), nil
					}
					return nil, nil
				},
			},
			"category": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return string(e.Category), nil
					}
					return nil, nil
				},
			},
			"entityKind": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return string(e.EntityKind), nil
					}
					return nil, nil
				},
			},
			"entityId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return e.EntityID, nil
					}
					return nil, nil
				},
			},
			"status": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return string(e.Status), nil
					}
					return nil, nil
				},
			},
			"reason": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return e.Reason, nil
					}
					return nil, nil
				},
			},
			"level": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return e.Level.String(), nil
					}
					return nil, nil
				},
			},
			"virtualTime": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if e, ok := p.Source.(*audit.Entry); ok {
						return int(e.VirtualTime), nil
					}
					return nil, nil
				},
			},
		},
	})
}

func buildActionType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Action",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a, ok := p.Source.(*action.Action); ok {
						return a.ID, nil
					}
					return nil, nil
				},
			},
			"type": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a, ok := p.Source.(*action.Action); ok {
						return string(a.Type), nil
					}
					return nil, nil
				},
			},
			"sourceId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a, ok := p.Source.(*action.Action); ok {
						return a.SourceID, nil
					}
					return nil, nil
				},
			},
			"targetId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a, ok := p.Source.(*action.Action); ok {
						return a.TargetID, nil
					}
					return nil, nil
				},
			},
			"cost": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a, ok := p.Source.(*action.Action); ok {
						return a.Cost, nil
					}
					return nil, nil
				},
			},
			"duration": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a, ok := p.Source.(*action.Action); ok {
						return int(a.Duration), nil
					}
					return nil, nil
				},
			},
			"status": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a, ok := p.Source.(*action.Action); ok {
						return string(a.Status), nil
					}
					return nil, nil
				},
			},
		},
	})
}
