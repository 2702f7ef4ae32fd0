package descriptors

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"github.com/vkngwrapper/lifecycle/internal/utils"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// GrowableAllocator issues descriptor sets from a growing collection of fixed-size pools. Pools
// are never freed individually: once a pool runs out of space it is parked until ClearPools
// resets every pool at once, which invalidates every set the allocator has issued.
//
// Sets must not be retained across a call to ClearPools or DestroyPools.
type GrowableAllocator struct {
	logger    *slog.Logger
	factory   device.DescriptorPoolFactory
	name      string
	mutex     utils.OptionalMutex
	callbacks poolCallbacks

	ratios         []PoolSizeRatio
	growthFactor   float64
	maxSetsPerPool int
	setsPerPool    int

	ready      []*resourcePool
	exhausted  []*resourcePool
	pools      *swiss.Map[int, *resourcePool]
	nextPoolID int
	destroyed  bool
}

func (a *GrowableAllocator) Name() string { return a.name }

// SetsPerPool is the capacity the next newly-created pool will receive
func (a *GrowableAllocator) SetsPerPool() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.setsPerPool
}

// PoolCount is the number of pools the allocator currently owns, ready or exhausted
func (a *GrowableAllocator) PoolCount() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.pools.Count()
}

func (a *GrowableAllocator) ReadyPoolCount() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return len(a.ready)
}

func (a *GrowableAllocator) ExhaustedPoolCount() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return len(a.exhausted)
}

func (a *GrowableAllocator) clampSets(sets int) int {
	if sets > a.maxSetsPerPool {
		return a.maxSetsPerPool
	}
	if sets < 1 {
		return 1
	}
	return sets
}

func (a *GrowableAllocator) grow() {
	grown := int(float64(a.setsPerPool) * a.growthFactor)
	// Truncation would stall small pools, so any factor above 1 adds at least one set
	if a.growthFactor > 1 && grown <= a.setsPerPool {
		grown = a.setsPerPool + 1
	}
	grown = a.clampSets(grown)
	if grown > a.setsPerPool {
		a.setsPerPool = grown
	}
}

func (a *GrowableAllocator) createPool(maxSets int) (*resourcePool, error) {
	poolSizes := PoolSizes(a.ratios, maxSets)
	pool, res, err := a.factory.CreateDescriptorPool(device.DescriptorPoolCreateInfo{
		MaxSets:   maxSets,
		PoolSizes: poolSizes,
	})
	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "descriptor allocator %q failed to create a pool of %d sets", a.name, maxSets)
	}

	newPool := &resourcePool{
		id:        a.nextPoolID,
		maxSets:   maxSets,
		poolSizes: poolSizes,
		pool:      pool,
		state:     PoolStateReady,
	}
	a.nextPoolID++
	a.pools.Put(newPool.id, newPool)
	a.callbacks.Create(newPool)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "created descriptor pool",
		slog.String("allocator", a.name),
		slog.Int("pool", newPool.id),
		slog.Int("maxSets", maxSets))

	return newPool, nil
}

// acquirePool pops the most recently used ready pool, or creates a new pool at the current
// capacity and grows the capacity for next time if none are ready
func (a *GrowableAllocator) acquirePool() (*resourcePool, error) {
	if len(a.ready) > 0 {
		pool := a.ready[len(a.ready)-1]
		a.ready = a.ready[:len(a.ready)-1]
		return pool, nil
	}

	pool, err := a.createPool(a.setsPerPool)
	if err != nil {
		return nil, err
	}
	a.grow()

	return pool, nil
}

// Allocate issues a single descriptor set with the provided layout
func (a *GrowableAllocator) Allocate(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, error) {
	return a.AllocateNext(layout, nil)
}

// AllocateNext issues a single descriptor set with the provided layout and extension structures
// chained into the allocate info. Pool exhaustion is handled internally by parking the pool and
// retrying once on a fresh pool; a failure on the fresh pool is fatal.
//
// Set capacity only grows when a pool has to be created while no other pools are ready.
func (a *GrowableAllocator) AllocateNext(layout core1_0.DescriptorSetLayout, next common.Options) (core1_0.DescriptorSet, error) {
	a.logger.Debug("GrowableAllocator::Allocate")

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.destroyed {
		return nil, errors.Newf("attempted to allocate from descriptor allocator %q after its pools were destroyed", a.name)
	}

	pool, err := a.acquirePool()
	if err != nil {
		return nil, err
	}

	set, res, err := pool.allocate(layout, next)
	if isOutOfPoolSpace(res) {
		pool.state = PoolStateExhausted
		a.exhausted = append(a.exhausted, pool)

		a.logger.LogAttrs(context.Background(), slog.LevelDebug, "descriptor pool exhausted",
			slog.String("allocator", a.name),
			slog.Int("pool", pool.id),
			slog.Int("allocated", pool.allocated))

		pool, err = a.createPool(a.setsPerPool)
		if err != nil {
			return nil, err
		}
		if len(a.ready) == 0 {
			a.grow()
		}

		set, res, err = pool.allocate(layout, next)
	}

	// The pool stays ready even on failure so that DestroyPools can still find it
	a.ready = append(a.ready, pool)

	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "descriptor allocator %q failed to allocate a set from pool %d (%d of %d sets in use)",
			a.name, pool.id, pool.allocated, pool.maxSets)
	}

	gpuutils.DebugValidate(a)
	return set, nil
}

// ClearPools resets every pool the allocator owns and makes them all ready again. Every set
// previously issued by this allocator becomes invalid.
func (a *GrowableAllocator) ClearPools() error {
	a.logger.Debug("GrowableAllocator::ClearPools")

	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, pool := range a.ready {
		err := a.resetPool(pool)
		if err != nil {
			return err
		}
	}

	for _, pool := range a.exhausted {
		err := a.resetPool(pool)
		if err != nil {
			return err
		}
		a.ready = append(a.ready, pool)
	}
	a.exhausted = a.exhausted[:0]

	gpuutils.DebugValidate(a)
	return nil
}

func (a *GrowableAllocator) resetPool(pool *resourcePool) error {
	res, err := pool.reset()
	if err != nil {
		return gpuutils.FatalResult(res, err, "descriptor allocator %q failed to reset pool %d", a.name, pool.id)
	}
	a.callbacks.Reset(pool)
	return nil
}

// DestroyPools destroys every pool the allocator owns. The allocator can not be used to allocate
// after this is called.
func (a *GrowableAllocator) DestroyPools() {
	a.logger.Debug("GrowableAllocator::DestroyPools")

	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, pool := range a.ready {
		a.destroyPool(pool)
	}
	a.ready = nil

	for _, pool := range a.exhausted {
		a.destroyPool(pool)
	}
	a.exhausted = nil

	a.destroyed = true
}

func (a *GrowableAllocator) destroyPool(pool *resourcePool) {
	a.callbacks.Destroy(pool)
	pool.destroy()
	a.pools.Delete(pool.id)
}

// Statistics summarizes every pool the allocator owns
func (a *GrowableAllocator) Statistics() gpuutils.Statistics {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	var stats gpuutils.Statistics
	a.pools.Iter(func(id int, pool *resourcePool) bool {
		stats.AddPool(pool.maxSets, pool.allocated, pool.state == PoolStateExhausted)
		return false
	})
	return stats
}

func (a *GrowableAllocator) sortedPoolIDs() []int {
	ids := make([]int, 0, a.pools.Count())
	a.pools.Iter(func(id int, pool *resourcePool) bool {
		ids = append(ids, id)
		return false
	})
	slices.Sort(ids)
	return ids
}

// PrintDetailedMap writes a JSON object describing the allocator and each of its pools
func (a *GrowableAllocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	objState := writer.Object()
	defer objState.End()

	objState.Name("Name").String(a.name)
	objState.Name("SetsPerPool").Int(a.setsPerPool)
	objState.Name("ReadyPools").Int(len(a.ready))
	objState.Name("ExhaustedPools").Int(len(a.exhausted))

	poolsObj := objState.Name("Pools").Object()
	for _, id := range a.sortedPoolIDs() {
		pool, _ := a.pools.Get(id)

		poolObj := poolsObj.Name(strconv.Itoa(id)).Object()
		poolObj.Name("State").String(pool.state.String())
		poolObj.Name("MaxSets").Int(pool.maxSets)
		poolObj.Name("AllocatedSets").Int(pool.allocated)

		sizes := poolObj.Name("PoolSizes").Array()
		for _, size := range pool.poolSizes {
			sizeObj := sizes.Object()
			sizeObj.Name("Type").String(fmt.Sprintf("%v", size.Type))
			sizeObj.Name("Count").Int(size.DescriptorCount)
			sizeObj.End()
		}
		sizes.End()

		poolObj.End()
	}
	poolsObj.End()
}

// Validate checks the allocator's internal bookkeeping. It is run after every mutation in
// builds with the debug_gpu_lifecycle tag.
func (a *GrowableAllocator) Validate() error {
	if a.setsPerPool < 1 || a.setsPerPool > a.maxSetsPerPool {
		return errors.Newf("sets per pool %d is outside of the range [1, %d]", a.setsPerPool, a.maxSetsPerPool)
	}

	listed := len(a.ready) + len(a.exhausted)
	if listed != a.pools.Count() {
		return errors.Newf("the allocator lists %d pools but owns %d", listed, a.pools.Count())
	}

	seen := make(map[int]bool, listed)
	for _, pool := range a.ready {
		if pool.state != PoolStateReady {
			return errors.Newf("pool %d is in the ready list with state %s", pool.id, pool.state)
		}
		if seen[pool.id] {
			return errors.Newf("pool %d is listed more than once", pool.id)
		}
		seen[pool.id] = true
	}

	for _, pool := range a.exhausted {
		if pool.state != PoolStateExhausted {
			return errors.Newf("pool %d is in the exhausted list with state %s", pool.id, pool.state)
		}
		if seen[pool.id] {
			return errors.Newf("pool %d is listed more than once", pool.id)
		}
		seen[pool.id] = true
	}

	return nil
}
