// Package mock provides test doubles for fastlane interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/fastlane"
)

// Interface compliance checks.
var (
	_ fastlane.Producer  = (*Producer)(nil)
	_ fastlane.Readiness = (*Readiness)(nil)
)

// Producer is a test double for fastlane.Producer.
// Set StreamFn before calling Stream.
type Producer struct {
	StreamFn func(ctx context.Context, req fastlane.Request) (fastlane.SnapshotStream, error)
}

// Stream delegates to StreamFn.
func (p *Producer) Stream(ctx context.Context, req fastlane.Request) (fastlane.SnapshotStream, error) {
	return p.StreamFn(ctx, req)
}

// Readiness is a test double for fastlane.Readiness.
type Readiness struct {
	ReadyFn func(*fastlane.AggregateState) bool
}

// Ready delegates to ReadyFn.
func (r *Readiness) Ready(a *fastlane.AggregateState) bool {
	return r.ReadyFn(a)
}
