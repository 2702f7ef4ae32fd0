package descriptors

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
)

// LayoutCreator is satisfied by core1_0.Device
type LayoutCreator interface {
	CreateDescriptorSetLayout(allocationCallbacks *driver.AllocationCallbacks, o core1_0.DescriptorSetLayoutCreateInfo) (core1_0.DescriptorSetLayout, common.VkResult, error)
}

// LayoutBuilder accumulates single-descriptor bindings for a descriptor set layout
type LayoutBuilder struct {
	bindings []core1_0.DescriptorSetLayoutBinding
}

func (b *LayoutBuilder) AddBinding(binding int, descriptorType core1_0.DescriptorType) {
	b.bindings = append(b.bindings, core1_0.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
	})
}

func (b *LayoutBuilder) Clear() {
	b.bindings = b.bindings[:0]
}

func (b *LayoutBuilder) Bindings() []core1_0.DescriptorSetLayoutBinding {
	return b.bindings
}

// Build creates a layout from the accumulated bindings, making every binding visible to
// shaderStages in addition to any stages it was already visible to
func (b *LayoutBuilder) Build(creator LayoutCreator, shaderStages core1_0.ShaderStageFlags, flags core1_0.DescriptorSetLayoutCreateFlags, next common.Options) (core1_0.DescriptorSetLayout, common.VkResult, error) {
	for i := range b.bindings {
		b.bindings[i].StageFlags |= shaderStages
	}

	bindings := make([]core1_0.DescriptorSetLayoutBinding, len(b.bindings))
	copy(bindings, b.bindings)

	return creator.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Flags:       flags,
		Bindings:    bindings,
		NextOptions: common.NextOptions{Next: next},
	})
}
