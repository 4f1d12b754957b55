package regalloc

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Factory builds a fresh Allocator-driving strategy for one function. The
// registry only hands back factories whose minimum target API constraint is
// satisfied by the caller's target.Description.APIVersion(), mirroring
// RegisterRegAlloc's two aliases ("ilp", "regalloc-ilp") while adding an
// explicit semver compatibility gate using Masterminds/semver, the same
// library a package-manager version resolver would use.
type Factory func(tgt TargetInfo, vrm VirtRegMap, liveness LivenessDB, spillerFactory SpillerFactory, cfg DriverConfig) (*Allocator, error)

type registration struct {
	name       string
	minVersion *semver.Constraints
	factory    Factory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

// Register adds a named allocation strategy to the global registry, gated
// by a semver constraint string (e.g. ">=1.0.0") the target's APIVersion()
// must satisfy for the strategy to be selectable.
func Register(name, minTargetAPI string, factory Factory) error {
	c, err := semver.NewConstraint(minTargetAPI)
	if err != nil {
		return fmt.Errorf("regalloc: invalid constraint %q for strategy %q: %w", minTargetAPI, name, err)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = registration{name: name, minVersion: c, factory: factory}
	return nil
}

// Lookup returns the factory registered under name, if the target's
// APIVersion satisfies the registration's constraint.
func Lookup(name string, tgt TargetInfo) (Factory, error) {
	registryMu.RLock()
	reg, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("regalloc: no strategy registered as %q", name)
	}

	v, err := semver.NewVersion(tgt.APIVersion())
	if err != nil {
		return nil, fmt.Errorf("regalloc: target API version %q is not valid semver: %w", tgt.APIVersion(), err)
	}
	if !reg.minVersion.Check(v) {
		return nil, fmt.Errorf("regalloc: strategy %q requires target API %s, got %s", name, reg.minVersion.String(), v.String())
	}
	return reg.factory, nil
}

// Names returns every registered strategy name, sorted for deterministic
// iteration (logging, CLI help text).
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// mipAllocatorFactory is the Factory bound to the registry's canonical
// names: a straightforward NewAllocator wrapper.
//
// Registration happens in solver_bnb.go's init(), gated by the "mipsolver"
// build tag: without a real solver backend compiled in, "ilp" and
// "regalloc-ilp" are not selectable strategies at all, matching
// NewAllocator's own refusal to construct when RequireSolver is set but no
// backend is available.
func mipAllocatorFactory(tgt TargetInfo, vrm VirtRegMap, liveness LivenessDB, spillerFactory SpillerFactory, cfg DriverConfig) (*Allocator, error) {
	matrix := NewMatrix(tgt)
	return NewAllocator(tgt, matrix, vrm, liveness, spillerFactory, cfg)
}
