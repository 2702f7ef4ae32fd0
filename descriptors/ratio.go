package descriptors

import (
	"math"

	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/device"
)

// PoolSizeRatio is the number of descriptors of Type a pool should hold per descriptor set
type PoolSizeRatio struct {
	Type  core1_0.DescriptorType
	Ratio float32
}

// PoolSizes resolves a set of ratios against a set capacity: each type receives
// floor(Ratio * maxSets) descriptors.
func PoolSizes(ratios []PoolSizeRatio, maxSets int) []device.DescriptorPoolSize {
	sizes := make([]device.DescriptorPoolSize, 0, len(ratios))
	for _, ratio := range ratios {
		sizes = append(sizes, device.DescriptorPoolSize{
			Type:            ratio.Type,
			DescriptorCount: int(math.Floor(float64(ratio.Ratio) * float64(maxSets))),
		})
	}
	return sizes
}
