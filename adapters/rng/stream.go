package rng

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"hmmsynth/internal"
)

// StreamAdapter implements ports.RNGPort on PCG sources.
type StreamAdapter struct {
	logger *internal.Logger
}

// NewStreamAdapter creates the adapter. A nil logger uses the default one.
func NewStreamAdapter(logger *internal.Logger) *StreamAdapter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StreamAdapter{logger: logger}
}

// ResolveSeed returns seed unchanged, or a time-derived seed when seed is 0.
// The chosen seed is logged so a run can be reproduced.
func (r *StreamAdapter) ResolveSeed(seed uint64) uint64 {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
		r.logger.Info("Using seed: %d", seed)
	}
	return seed
}

// Stream creates a deterministic source for one model on one worker
func (r *StreamAdapter) Stream(ctx context.Context, namespace, model string, worker int, baseSeed uint64) (rand.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if worker < 0 {
		return nil, fmt.Errorf("worker index must be non-negative, got %d", worker)
	}
	// Mix the parts into the two PCG words so streams differ in both.
	hi := baseSeed
	if namespace != "" {
		hi += uint64(hashString(namespace)) << 32
	}
	lo := uint64(hashString(model))<<32 | uint64(uint32(worker))
	r.logger.Trace("rng stream namespace=%q model=%q worker=%d", namespace, model, worker)
	return rand.NewPCG(hi, lo), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
