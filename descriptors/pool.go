package descriptors

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/lifecycle/device"
)

// PoolState tracks whether a pool may still serve allocations
type PoolState int32

const (
	// PoolStateReady pools are eligible to serve allocations
	PoolStateReady PoolState = iota
	// PoolStateExhausted pools reported that they are out of space and will not be used again
	// until they are cleared
	PoolStateExhausted
)

var poolStateMapping = map[PoolState]string{
	PoolStateReady:     "Ready",
	PoolStateExhausted: "Exhausted",
}

func (s PoolState) String() string {
	return poolStateMapping[s]
}

// resourcePool is a single fixed-capacity descriptor pool and the bookkeeping the
// allocators keep for it
type resourcePool struct {
	id        int
	maxSets   int
	poolSizes []device.DescriptorPoolSize
	pool      device.DescriptorPool
	state     PoolState
	allocated int
}

func isOutOfPoolSpace(res common.VkResult) bool {
	return res == core1_1.VkErrorOutOfPoolMemory || res == core1_0.VKErrorFragmentedPool
}

func (p *resourcePool) allocate(layout core1_0.DescriptorSetLayout, next common.Options) (core1_0.DescriptorSet, common.VkResult, error) {
	set, res, err := p.pool.AllocateSet(layout, next)
	if err != nil || res != core1_0.VKSuccess {
		return nil, res, err
	}

	p.allocated++
	return set, res, nil
}

func (p *resourcePool) reset() (common.VkResult, error) {
	res, err := p.pool.Reset()
	if err != nil {
		return res, err
	}

	p.allocated = 0
	p.state = PoolStateReady
	return res, nil
}

func (p *resourcePool) destroy() {
	p.pool.Destroy()
	p.pool = nil
}
