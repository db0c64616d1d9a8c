package payment

import (
	"context"
	"fmt"
	"time"
)

// DecisionFunc stands in for the payer's confirm dialog.
type DecisionFunc func(intent Intent) (Confirmation, error)

// SimulatedGateway approves intents after an optional processing delay. The
// decision function is injectable so tests and the demo binary can script
// approvals, declines, and processor faults.
type SimulatedGateway struct {
	decision DecisionFunc
	delay    time.Duration
}

// NewSimulatedGateway builds a gateway that approves everything. Use the
// options to change the decision or add latency.
func NewSimulatedGateway(opts ...SimulatedOption) *SimulatedGateway {
	g := &SimulatedGateway{
		decision: func(intent Intent) (Confirmation, error) {
			return Confirmation{
				Approved:  true,
				Reference: fmt.Sprintf("sim-%s", intent.ID),
			}, nil
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type SimulatedOption func(*SimulatedGateway)

// WithDecision replaces the default approve-all decision.
func WithDecision(decision DecisionFunc) SimulatedOption {
	return func(g *SimulatedGateway) {
		if decision != nil {
			g.decision = decision
		}
	}
}

// WithDelay adds simulated processing latency before the decision runs.
func WithDelay(delay time.Duration) SimulatedOption {
	return func(g *SimulatedGateway) {
		g.delay = delay
	}
}

// Confirm waits out the configured delay, honoring ctx, then applies the
// decision function.
func (g *SimulatedGateway) Confirm(ctx context.Context, intent Intent) (Confirmation, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Confirmation{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return Confirmation{}, err
	}
	return g.decision(intent)
}
