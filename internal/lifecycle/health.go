package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ErrShuttingDown is returned by readiness probes once shutdown has started.
var ErrShuttingDown = errors.New("service is shutting down")

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes ties the probe answers to a Coordinator: the process stays live
// throughout shutdown but stops being ready the moment it begins, so load
// balancers drain traffic while hooks run.
type Probes struct {
	log    *slog.Logger
	coord  *Coordinator
	logged atomic.Bool
}

func NewProbes(log *slog.Logger, coord *Coordinator) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, coord: coord}
}

func (p *Probes) Liveness(context.Context) error {
	return nil
}

// Readiness fails with ErrShuttingDown after the shutdown sequence has
// started. The first rejection is logged.
func (p *Probes) Readiness(context.Context) error {
	if p.coord == nil || !p.coord.ShuttingDown() {
		return nil
	}

	if p.logged.CompareAndSwap(false, true) {
		p.log.Info("readiness probe now failing", slog.String("state", p.coord.State().String()))
	}
	return fmt.Errorf("%w (state %s)", ErrShuttingDown, p.coord.State())
}
