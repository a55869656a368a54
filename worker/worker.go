// Package worker implements CPU-adaptive pool sizing and per-satellite
// task fan-out with failure isolation, via golang.org/x/sync/errgroup
// (concurrency control) and github.com/shirou/gopsutil/v3/cpu (the live
// load probe behind the adaptive sizing policy).
package worker

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Failure records one satellite's task failure; the batch continues
// without it.
type Failure struct {
	SatelliteID string
	Err         error
}

// Count resolves the worker-pool size: MAX_WORKERS env var first, then
// configOverride (0 = unset), then a live CPU load probe, floored at 1.
func Count(configOverride int) int {
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if configOverride > 0 {
		return configOverride
	}
	return adaptiveCount()
}

func adaptiveCount() int {
	cores := runtime.NumCPU()
	loadPct, err := probeLoad()
	if err != nil {
		logrus.WithError(err).Warn("worker: CPU load probe failed, defaulting to 75% of cores")
		loadPct = 50.0 // treat as "moderate" on probe failure
	}

	var fraction float64
	switch {
	case loadPct < 30.0:
		fraction = 0.95
	case loadPct < 70.0:
		fraction = 0.75
	default:
		fraction = 0.50
	}

	n := int(float64(cores) * fraction)
	if n < 1 {
		n = 1
	}
	return n
}

func probeLoad() (float64, error) {
	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		return 0, err
	}
	return percentages[0], nil
}

// Run fans work out over a CPU-adaptive pool. task is called once per
// item in ids, concurrently, bounded at Count(configOverride) in flight.
// A panic or error from one task is isolated: it is recorded as a
// Failure and does not cancel the others.
func Run(ctx context.Context, ids []string, configOverride int, task func(ctx context.Context, id string) error) []Failure {
	n := Count(configOverride)
	logrus.WithFields(logrus.Fields{"workers": n, "tasks": len(ids)}).Info("worker: starting batch")

	sem := make(chan struct{}, n)
	// Each task writes only its own slot; the slots are merged into the
	// failure list on this goroutine after Wait, so no lock is needed.
	errs := make([]error, len(ids))

	// Plain errgroup.Group, not WithContext: a first error must not cancel
	// the remaining tasks (failure isolation).
	var g errgroup.Group

	for i, id := range ids {
		i, id := i, id
		sem <- struct{}{}
		g.Go(func() (err error) {
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = recoverToError(r)
				}
			}()
			errs[i] = task(ctx, id)
			return nil
		})
	}
	_ = g.Wait() // errors are captured per-task above; Go() never returns non-nil here

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{SatelliteID: ids[i], Err: err})
		}
	}
	return failures
}

func recoverToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{value: r}
}

type panicError struct{ value any }

func (p *panicError) Error() string { return fmt.Sprintf("worker: task panicked: %v", p.value) }
