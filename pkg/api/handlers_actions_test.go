package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
)

func TestAPI_SubmitAction(t *testing.T) {
	server, seeded := setupTestServerWithData(t)
	if _, err := server.engine.SetNodeState(seeded.Positive, lattice.StateTransmitting); err != nil {
		t.Fatalf("Failed to stage source state: %v", err)
	}

	rr := doRequest(t, server, http.MethodPost, "/api/actions", ActionRequest{
		Type:     "transmit",
		SourceID: seeded.Positive,
		TargetID: seeded.Negative,
		Cost:     0.1,
		Duration: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var result action.Result
	decodeResponse(t, rr, &result)
	if !result.Executed {
		t.Fatalf("Expected execution, got rejection: %s", result.Reason)
	}
	if result.VirtualTime != 2 {
		t.Errorf("Expected virtual time 2 after duration-2 action, got %d", result.VirtualTime)
	}
	if result.Action.Status != action.StatusCompleted {
		t.Errorf("Expected completed status, got %s", result.Action.Status)
	}
	if result.Action.ExecutedAt != 2 {
		t.Errorf("Expected executed_at 2, got %d", result.Action.ExecutedAt)
	}

	// The source paid the cost and both nodes transitioned
	rr = doRequest(t, server, http.MethodGet, "/api/nodes/"+seeded.Positive, nil)
	var source lattice.Node
	decodeResponse(t, rr, &source)
	if source.Energy != 0.9 {
		t.Errorf("Expected source energy 0.9 after cost 0.1, got %f", source.Energy)
	}
	if source.State != lattice.StateIdle {
		t.Errorf("Expected source back to idle, got %s", source.State)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/nodes/"+seeded.Negative, nil)
	var target lattice.Node
	decodeResponse(t, rr, &target)
	if target.State != lattice.StateReceiving {
		t.Errorf("Expected target receiving, got %s", target.State)
	}
	if target.Energy != 1.0 {
		t.Errorf("Target should not pay, got energy %f", target.Energy)
	}
}

func TestAPI_SubmitAction_Rejected(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	// Fresh nodes sit idle, which no transmit source may be
	rr := doRequest(t, server, http.MethodPost, "/api/actions", ActionRequest{
		Type:     "transmit",
		SourceID: seeded.Positive,
		TargetID: seeded.Negative,
		Cost:     0.1,
		Duration: 1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Rejections travel as 200, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var result action.Result
	decodeResponse(t, rr, &result)
	if result.Executed {
		t.Fatal("Transmit from an idle source should be rejected")
	}
	if !strings.Contains(result.Reason, "source must be transmitting") {
		t.Errorf("Unexpected rejection reason: %s", result.Reason)
	}
	if result.VirtualTime != 0 {
		t.Errorf("Rejection must not move the clock, got %d", result.VirtualTime)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/status", nil)
	var status StatusResponse
	decodeResponse(t, rr, &status)
	if status.Engine.VirtualTime != 0 {
		t.Errorf("Engine clock moved on rejection: %d", status.Engine.VirtualTime)
	}
}

func TestAPI_SubmitAction_UnknownSource(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	rr := doRequest(t, server, http.MethodPost, "/api/actions", ActionRequest{
		Type:     "transmit",
		SourceID: "ghost",
		TargetID: seeded.Negative,
		Cost:     0.1,
		Duration: 1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var result action.Result
	decodeResponse(t, rr, &result)
	if result.Executed {
		t.Fatal("Action from unknown node should be rejected")
	}
	if !strings.Contains(result.Reason, "unknown source node") {
		t.Errorf("Unexpected rejection reason: %s", result.Reason)
	}
}

func TestAPI_SubmitAction_Validation(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	tests := []struct {
		name string
		body ActionRequest
	}{
		{
			name: "missing source",
			body: ActionRequest{Type: "transmit", TargetID: seeded.Negative, Duration: 1},
		},
		{
			name: "unknown type",
			body: ActionRequest{Type: "teleport", SourceID: seeded.Positive, TargetID: seeded.Negative, Duration: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, http.MethodPost, "/api/actions", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d, body: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAPI_ValidateAction(t *testing.T) {
	server, seeded := setupTestServerWithData(t)
	if _, err := server.engine.SetNodeState(seeded.Positive, lattice.StateTransmitting); err != nil {
		t.Fatalf("Failed to stage source state: %v", err)
	}

	rr := doRequest(t, server, http.MethodPost, "/api/actions/validate", ActionRequest{
		Type:     "transmit",
		SourceID: seeded.Positive,
		TargetID: seeded.Negative,
		Cost:     0.1,
		Duration: 1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var verdict action.Verdict
	decodeResponse(t, rr, &verdict)
	if !verdict.Valid {
		t.Fatalf("Expected valid verdict, got: %s", verdict.Reason)
	}

	// Validation never executes: clock still zero, energy untouched
	rr = doRequest(t, server, http.MethodGet, "/api/status", nil)
	var status StatusResponse
	decodeResponse(t, rr, &status)
	if status.Engine.VirtualTime != 0 {
		t.Errorf("Validation moved the clock: %d", status.Engine.VirtualTime)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/actions/validate", ActionRequest{
		Type:     "transmit",
		SourceID: seeded.Positive,
		TargetID: seeded.Negative,
		Cost:     5.0,
		Duration: 1,
	})
	decodeResponse(t, rr, &verdict)
	if verdict.Valid {
		t.Fatal("Cost above the source energy should fail validation")
	}
	if !strings.Contains(verdict.Reason, "insufficient energy") {
		t.Errorf("Unexpected reason: %s", verdict.Reason)
	}
}

func TestAPI_SubmitReflect(t *testing.T) {
	server, seeded := setupTestServerWithData(t)

	rr := doRequest(t, server, http.MethodPost, "/api/actions", ActionRequest{
		Type:     "reflect",
		SourceID: seeded.Coupler,
		PatchID:  seeded.PatchID,
		Cost:     0.01,
		Duration: 1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var result action.Result
	decodeResponse(t, rr, &result)
	if !result.Executed {
		t.Fatalf("Reflect should execute from any state, got: %s", result.Reason)
	}
	if result.VirtualTime != 1 {
		t.Errorf("Expected virtual time 1, got %d", result.VirtualTime)
	}
}

func TestAPI_ActionQueue(t *testing.T) {
	server, seeded := setupTestServerWithData(t)
	eng := server.engine
	if _, err := eng.SetNodeState(seeded.Coupler, lattice.StateProcessing); err != nil {
		t.Fatalf("Failed to stage queue source: %v", err)
	}

	for i := 0; i < 2; i++ {
		rr := doRequest(t, server, http.MethodPost, "/api/actions/queue", ActionRequest{
			Type:     "feedback",
			SourceID: seeded.Coupler,
			TargetID: seeded.Positive,
			Cost:     0.01,
			Duration: 1,
		})
		if rr.Code != http.StatusAccepted {
			t.Fatalf("Expected 202, got %d, body: %s", rr.Code, rr.Body.String())
		}
	}

	rr := doRequest(t, server, http.MethodGet, "/api/actions/queue", nil)
	var queue QueueResponse
	decodeResponse(t, rr, &queue)
	if queue.Depth != 2 {
		t.Fatalf("Expected queue depth 2, got %d", queue.Depth)
	}

	// First feedback flips the source to idle, so the second bounces
	rr = doRequest(t, server, http.MethodPost, "/api/actions/queue/drain", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d, body: %s", rr.Code, rr.Body.String())
	}
	var drain DrainResponse
	decodeResponse(t, rr, &drain)
	if len(drain.Results) != 2 {
		t.Fatalf("Expected 2 drain results, got %d", len(drain.Results))
	}
	if drain.Executed != 1 || drain.Rejected != 1 {
		t.Errorf("Expected 1 executed / 1 rejected, got %d / %d", drain.Executed, drain.Rejected)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/actions/queue", nil)
	decodeResponse(t, rr, &queue)
	if queue.Depth != 0 {
		t.Errorf("Expected empty queue after drain, got %d", queue.Depth)
	}
}
