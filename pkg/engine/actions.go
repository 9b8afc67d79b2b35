package engine

import (
	"fmt"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/pubsub"
)

// SubmitAction validates and executes one action immediately. The
// result says whether it executed and carries the clock reading after
// the attempt; a rejection leaves the lattice and clock untouched.
func (e *Engine) SubmitAction(a *action.Action) (action.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return action.Result{}, ErrEngineClosed
	}
	return e.executeLocked(a), nil
}

// ValidateAction runs the full validation pipeline without executing.
// The verdict is audited but counts as no attempt.
func (e *Engine) ValidateAction(a *action.Action) (action.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return action.Verdict{}, ErrEngineClosed
	}
	return e.executor.Validate(a), nil
}

// EnqueueAction queues an action for a later DrainQueue.
func (e *Engine) EnqueueAction(a *action.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if a == nil {
		return fmt.Errorf("nil action")
	}

	e.queue.Enqueue(a)
	e.refreshGauges()
	return nil
}

// QueueDepth returns the number of queued actions.
func (e *Engine) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0
	}
	return e.queue.Len()
}

// QueuedActions returns snapshots of the queued actions in order.
func (e *Engine) QueuedActions() []*action.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	return e.queue.Snapshot()
}

// DrainQueue executes every queued action in FIFO order and returns
// one result per action. Rejections do not stop the drain.
func (e *Engine) DrainQueue() ([]action.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	results := make([]action.Result, 0, e.queue.Len())
	for {
		a, ok := e.queue.Dequeue()
		if !ok {
			break
		}
		results = append(results, e.executeLocked(a))
	}
	return results, nil
}

// executeLocked runs one action through the executor and fires the
// engine-side hooks: metrics, events, gauge refresh. Callers must hold
// e.mu.
func (e *Engine) executeLocked(a *action.Action) action.Result {
	res := e.executor.Execute(a)

	status := resultStatus(res)
	if e.registry != nil {
		var actionType string
		var cost float64
		var ticks uint64
		if res.Action != nil {
			actionType = string(res.Action.Type)
			cost = res.Action.Cost
			ticks = res.Action.Duration
		}
		e.registry.RecordAction(actionType, status, cost, ticks)
		if status == "rejected" {
			e.registry.RecordValidationFailure(actionType)
		}
	}

	topic := pubsub.TopicActionRejected
	if res.Executed {
		topic = pubsub.TopicActionCompleted
	}
	e.publish(topic, res)
	e.refreshGauges()
	return res
}
