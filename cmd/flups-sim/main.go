package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
)

func main() {
	actions := flag.Int("actions", 50, "Number of random actions in the storm phase")
	flag.Parse()

	fmt.Printf("🔺 fLups Engine Simulation\n")
	fmt.Printf("==========================\n\n")

	cfg := config.Default()
	eng, err := engine.New(engine.Options{Config: cfg})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	// Phase 1: Seed Triangle
	fmt.Printf("📐 Phase 1: Seed Triangle\n")
	positive, err := eng.CreateNode(lattice.KindPositive, geometry.Vec3{X: 1, Y: 0, Z: 0}, 1.0)
	if err != nil {
		log.Fatalf("Failed to create positive node: %v", err)
	}
	negative, err := eng.CreateNode(lattice.KindNegative, geometry.Vec3{X: 0, Y: 1, Z: 0}, 1.0)
	if err != nil {
		log.Fatalf("Failed to create negative node: %v", err)
	}
	coupler, err := eng.CreateNode(lattice.KindCoupler, geometry.Vec3{X: 0, Y: 0, Z: 1}, 1.0)
	if err != nil {
		log.Fatalf("Failed to create coupler node: %v", err)
	}
	fmt.Printf("  Created %s node %.8s at (1,0,0)\n", positive.Kind, positive.ID)
	fmt.Printf("  Created %s node %.8s at (0,1,0)\n", negative.Kind, negative.ID)
	fmt.Printf("  Created %s node %.8s at (0,0,1)\n", coupler.Kind, coupler.ID)

	patch, err := eng.CreatePatch(positive.ID, negative.ID, coupler.ID)
	if err != nil {
		log.Fatalf("Failed to create patch: %v", err)
	}
	fmt.Printf("  Created patch %.8s, center (%.3f, %.3f, %.3f), energy %.2f\n",
		patch.ID, patch.Center.X, patch.Center.Y, patch.Center.Z, patch.TotalEnergy)
	fmt.Printf("  ✅ Triangle seeded\n")

	// Phase 2: Mirror Lattice
	fmt.Printf("\n🪞 Phase 2: Mirror Lattice\n")
	mirror, mirrored, err := eng.CreateMirrorPatch(patch.ID)
	if err != nil {
		log.Fatalf("Failed to mirror patch: %v", err)
	}
	if !mirrored {
		log.Fatalf("Patch %s unexpectedly refused to mirror", patch.ID)
	}
	fmt.Printf("  Mirror patch %.8s, center (%.3f, %.3f, %.3f)\n",
		mirror.ID, mirror.Center.X, mirror.Center.Y, mirror.Center.Z)
	for _, id := range mirror.NodeIDs {
		node, ok := eng.GetNode(id)
		if !ok {
			log.Fatalf("Mirror node %s missing", id)
		}
		fmt.Printf("  Mirror node %.8s (%s) at (%.0f, %.0f, %.0f)\n",
			node.ID, node.Kind, node.Position.X, node.Position.Y, node.Position.Z)
	}
	fmt.Printf("  ✅ Mirror created, %d nodes total\n", eng.Statistics().Nodes)

	// Phase 3: Transmit (cost 0.1 from energy 1.0 leaves 0.9, clock advances)
	fmt.Printf("\n⚡ Phase 3: Transmit Action\n")
	if _, err := eng.SetNodeState(positive.ID, lattice.StateTransmitting); err != nil {
		log.Fatalf("Failed to stage transmitter: %v", err)
	}
	before := eng.VirtualTime()
	result, err := eng.SubmitAction(action.New(action.TypeTransmit, positive.ID, negative.ID, 0.1, 1))
	if err != nil {
		log.Fatalf("Failed to submit transmit: %v", err)
	}
	if !result.Executed {
		log.Fatalf("Transmit unexpectedly rejected: %s", result.Reason)
	}
	source, _ := eng.GetNode(positive.ID)
	fmt.Printf("  Transmit %.8s -> %.8s, cost 0.10\n", positive.ID, negative.ID)
	fmt.Printf("  Source energy: 1.00 -> %.2f\n", source.Energy)
	fmt.Printf("  Virtual time: %d -> %d\n", before, result.VirtualTime)
	fmt.Printf("  ✅ Executed\n")

	// Phase 4: Rejection (unknown source leaves the clock alone)
	fmt.Printf("\n🚫 Phase 4: Rejected Action\n")
	before = eng.VirtualTime()
	result, err = eng.SubmitAction(action.New(action.TypeTransmit, "no-such-node", negative.ID, 0.1, 1))
	if err != nil {
		log.Fatalf("Failed to submit rejected action: %v", err)
	}
	if result.Executed {
		log.Fatalf("Action on unknown node unexpectedly executed")
	}
	fmt.Printf("  Transmit from unknown node rejected: %s\n", result.Reason)
	fmt.Printf("  Virtual time unchanged: %d == %d\n", before, eng.VirtualTime())
	entries := eng.AuditRecent(1, audit.LevelClassified)
	if len(entries) == 1 {
		fmt.Printf("  Audit entry #%d: %s/%s (%s)\n",
			entries[0].Sequence, entries[0].Category, entries[0].Status, entries[0].Reason)
	}
	fmt.Printf("  ✅ Rejection left state untouched\n")

	// Phase 5: Action Storm. Sources get staged into the state their
	// action type demands; targets stay wherever the previous actions
	// left them, so a share of the storm bounces off the state rules.
	fmt.Printf("\n🌪️  Phase 5: Action Storm (%d actions)\n", *actions)
	nodeIDs := []string{positive.ID, negative.ID, coupler.ID}
	types := []action.Type{action.TypeTransmit, action.TypeProcess, action.TypeReceive, action.TypeFeedback}
	sourceStates := map[action.Type]lattice.NodeState{
		action.TypeTransmit: lattice.StateTransmitting,
		action.TypeProcess:  lattice.StateProcessing,
		action.TypeReceive:  lattice.StateReceiving,
		action.TypeFeedback: lattice.StateProcessing,
	}
	executed, rejected := 0, 0
	lastTime := eng.VirtualTime()

	for i := 0; i < *actions; i++ {
		var a *action.Action
		if i%10 == 9 {
			a = action.NewReflect(nodeIDs[rand.Intn(len(nodeIDs))], patch.ID, 0.01, 1)
		} else {
			fromIdx := rand.Intn(len(nodeIDs))
			toIdx := rand.Intn(len(nodeIDs))
			if fromIdx == toIdx {
				toIdx = (toIdx + 1) % len(nodeIDs)
			}
			typ := types[rand.Intn(len(types))]
			if _, err := eng.SetNodeState(nodeIDs[fromIdx], sourceStates[typ]); err != nil {
				log.Fatalf("Failed to stage source: %v", err)
			}
			cost := rand.Float64() * 0.05
			a = action.New(typ, nodeIDs[fromIdx], nodeIDs[toIdx], cost, uint64(1+rand.Intn(3)))
		}

		result, err := eng.SubmitAction(a)
		if err != nil {
			log.Fatalf("Failed to submit action %d: %v", i, err)
		}
		if result.Executed {
			executed++
		} else {
			rejected++
		}
		if result.VirtualTime < lastTime {
			log.Fatalf("Virtual time went backwards: %d -> %d", lastTime, result.VirtualTime)
		}
		lastTime = result.VirtualTime
	}
	fmt.Printf("  Executed: %d, Rejected: %d\n", executed, rejected)
	fmt.Printf("  Virtual time now %d\n", eng.VirtualTime())
	fmt.Printf("  ✅ Clock stayed monotonic\n")

	// Phase 6: Queued Actions. The first feedback flips its source to
	// idle, so the later two bounce off the state rules during the drain.
	fmt.Printf("\n📥 Phase 6: Action Queue\n")
	if _, err := eng.SetNodeState(coupler.ID, lattice.StateProcessing); err != nil {
		log.Fatalf("Failed to stage queue source: %v", err)
	}
	if _, err := eng.SetNodeState(positive.ID, lattice.StateIdle); err != nil {
		log.Fatalf("Failed to stage queue target: %v", err)
	}
	for i := 0; i < 3; i++ {
		a := action.New(action.TypeFeedback, coupler.ID, positive.ID, 0.01, 1)
		if err := eng.EnqueueAction(a); err != nil {
			log.Fatalf("Failed to enqueue action: %v", err)
		}
	}
	fmt.Printf("  Enqueued 3 actions, depth %d\n", eng.QueueDepth())
	results, err := eng.DrainQueue()
	if err != nil {
		log.Fatalf("Failed to drain queue: %v", err)
	}
	drained := 0
	for _, r := range results {
		if r.Executed {
			drained++
		}
	}
	fmt.Printf("  Drained %d, executed %d, depth %d\n", len(results), drained, eng.QueueDepth())
	fmt.Printf("  ✅ Queue drained in order\n")

	// Phase 7: φ-Mapping
	fmt.Printf("\n🌐 Phase 7: Icosahedral Mapping\n")
	fmt.Printf("  %-10s %4s  %-28s %-24s %7s  %s\n", "Patch", "Face", "Barycentric (u,v,w)", "Position", "Quality", "Valid")
	for _, p := range eng.ListPatches() {
		m, err := eng.MapPatch(p.ID)
		if err != nil {
			log.Fatalf("Failed to map patch %s: %v", p.ID, err)
		}
		fmt.Printf("  %-10.8s %4d  (%.3f, %.3f, %.3f)         (%6.3f, %6.3f, %5.2f)  %7.3f  %v\n",
			m.PatchID, m.Face,
			m.Barycentric.U, m.Barycentric.V, m.Barycentric.W,
			m.Position.X, m.Position.Y, m.Position.Z,
			m.Quality, m.Valid)
	}
	fmt.Printf("  ✅ Mappings deterministic per patch\n")

	// Final Statistics
	fmt.Printf("\n📊 Final Statistics\n")
	status := eng.Statistics()
	fmt.Printf("  Virtual Time: %d\n", status.VirtualTime)
	fmt.Printf("  Nodes: %d (%d mirrors)\n", status.Nodes, status.MirrorNodes)
	fmt.Printf("  Patches: %d (%d mirrors)\n", status.Patches, status.MirrorPatches)
	fmt.Printf("  Actions: %d total, %d completed, %d failed\n",
		status.Actions.Total, status.Actions.Completed, status.Actions.Failed)
	fmt.Printf("  Mappings: %d\n", status.Mappings)
	fmt.Printf("  Audit: %d retained of %d appended\n", status.AuditRetained, status.AuditAppended)

	fmt.Printf("\n✅ Simulation complete!\n")
}
