package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"golang.org/x/exp/slog"
)

// Allocator issues descriptor sets from exactly one fixed-size pool. It suits descriptor sets
// whose count is known up front, such as the global scene sets; running out of space is fatal.
type Allocator struct {
	logger *slog.Logger
	pool   *resourcePool
}

// InitPool creates the allocator's pool
func (a *Allocator) InitPool(logger *slog.Logger, factory device.DescriptorPoolFactory, maxSets int, ratios []PoolSizeRatio) error {
	if a.pool != nil {
		return errors.New("attempted to initialize a descriptor allocator that already has a pool")
	}
	if maxSets < 1 {
		return errors.Newf("descriptor pool max sets must be positive, but was %d", maxSets)
	}

	a.logger = logger
	poolSizes := PoolSizes(ratios, maxSets)
	pool, res, err := factory.CreateDescriptorPool(device.DescriptorPoolCreateInfo{
		MaxSets:   maxSets,
		PoolSizes: poolSizes,
	})
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to create a descriptor pool of %d sets", maxSets)
	}

	a.pool = &resourcePool{
		maxSets:   maxSets,
		poolSizes: poolSizes,
		pool:      pool,
		state:     PoolStateReady,
	}
	return nil
}

// Allocate issues a single descriptor set from the pool
func (a *Allocator) Allocate(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, error) {
	if a.pool == nil {
		return nil, errors.New("attempted to allocate from a descriptor allocator without a pool")
	}

	set, res, err := a.pool.allocate(layout, nil)
	if err != nil || res != core1_0.VKSuccess {
		if isOutOfPoolSpace(res) {
			a.pool.state = PoolStateExhausted
		}
		return nil, gpuutils.FatalResult(res, err, "failed to allocate a descriptor set (%d of %d sets in use)", a.pool.allocated, a.pool.maxSets)
	}
	return set, nil
}

// ClearDescriptors returns every set to the pool. Previously issued sets become invalid.
func (a *Allocator) ClearDescriptors() error {
	if a.pool == nil {
		return nil
	}
	a.logger.Debug("Allocator::ClearDescriptors")

	res, err := a.pool.reset()
	if err != nil {
		return gpuutils.FatalResult(res, err, "failed to reset descriptor pool")
	}
	return nil
}

func (a *Allocator) DestroyPool() {
	if a.pool == nil {
		return
	}

	a.logger.Debug("Allocator::DestroyPool")
	a.pool.destroy()
	a.pool = nil
}

func (a *Allocator) AllocatedSets() int {
	if a.pool == nil {
		return 0
	}
	return a.pool.allocated
}
