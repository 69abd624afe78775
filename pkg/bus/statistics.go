package bus

import (
	"fmt"
	"log/slog"
	"time"
)

type Statistics struct {
	RunTime       time.Duration
	PostCount     uint64
	PostFails     uint64
	DispatchCount uint64
	DispatchFails uint64
	Throughput    float64
}

func (r *Router) Statistics() Statistics {
	runTime := time.Duration(r.runTime.Load())
	if runTime == 0 && !r.startTime.IsZero() {
		runTime = time.Since(r.startTime)
	}

	s := Statistics{
		RunTime:       runTime,
		PostCount:     r.postCount.Load(),
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
	}
	if runTime > 0 {
		s.Throughput = float64(s.PostCount) / runTime.Seconds()
	}
	return s
}

func (s Statistics) Print() {
	slog.Info("router statistics",
		"run_time", fmt.Sprintf("%.2fs", s.RunTime.Seconds()),
		"post_count", s.PostCount,
		"post_fails", s.PostFails,
		"dispatch_count", s.DispatchCount,
		"dispatch_fails", s.DispatchFails,
		"throughput", fmt.Sprintf("%.2f", s.Throughput))
}
