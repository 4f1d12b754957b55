package regalloc

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mipalloc/mipalloc/internal/config"
)

// FunctionJob bundles everything one function's allocation run needs. Each
// job gets its own Matrix, VirtRegMap and Spiller — the single-function,
// single-threaded invariant holds per job — while
// AllocateModule fans jobs out across goroutines at module scope, the way
// hhramberg-go-vslc's compiler driver walks functions with a manual
// WaitGroup, generalized here to an errgroup so the first function-level
// failure cancels the jobs that have not started yet.
type FunctionJob struct {
	Name           string
	Seed           []*VReg
	Target         TargetInfo
	VRM            VirtRegMap
	Liveness       LivenessDB
	SpillerFactory SpillerFactory
}

// AllocateModule runs one Allocator per FunctionJob concurrently, bounded
// by cfgFile.MaxWorkers (0 meaning runtime.GOMAXPROCS(0)), and returns the
// first error encountered across every job.
func AllocateModule(ctx context.Context, jobs []FunctionJob, cfg DriverConfig, cfgFile config.Config) error {
	workers := cfgFile.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dcfg := cfg
			if dcfg.Logger != nil {
				dcfg.Logger = dcfg.Logger.With("function", job.Name)
			}
			a, err := NewAllocator(job.Target, NewMatrix(job.Target), job.VRM, job.Liveness, job.SpillerFactory, dcfg)
			if err != nil {
				return err
			}
			return a.Run(job.Seed)
		})
	}

	return g.Wait()
}
