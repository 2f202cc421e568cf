// Package network decides whether the node can reach its collector and
// restores that reachability with a bounded number of attempts.
package network

import (
	"context"
	"time"
)

type Associator interface {
	IsAssociated() bool
	// Associate blocks for at most attempts*delay and reports whether the
	// node ended up associated.
	Associate(ctx context.Context, attempts int, delay time.Duration) bool
}

// Static is for wired nodes and benches: the network is always there.
type Static struct{}

func (Static) IsAssociated() bool { return true }

func (Static) Associate(context.Context, int, time.Duration) bool { return true }

// poll calls check up to attempts times, sleeping delay before each retry.
func poll(ctx context.Context, attempts int, delay time.Duration, check func() bool) bool {
	for i := 0; i < attempts; i++ {
		if check() {
			return true
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
	return false
}

// Chain is associated when every member is. Associate restores members in
// order and stops at the first one that cannot be restored.
type Chain []Associator

func (c Chain) IsAssociated() bool {
	for _, a := range c {
		if !a.IsAssociated() {
			return false
		}
	}
	return true
}

func (c Chain) Associate(ctx context.Context, attempts int, delay time.Duration) bool {
	for _, a := range c {
		if a.IsAssociated() {
			continue
		}
		if !a.Associate(ctx, attempts, delay) {
			return false
		}
	}
	return true
}
