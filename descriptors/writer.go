package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// SetUpdater is satisfied by core1_0.Device
type SetUpdater interface {
	UpdateDescriptorSets(writes []core1_0.WriteDescriptorSet, copies []core1_0.CopyDescriptorSet) error
}

// Writer batches descriptor writes so they can be applied to a freshly allocated set in one call
type Writer struct {
	writes []core1_0.WriteDescriptorSet
}

func (w *Writer) WriteImage(binding int, imageView core1_0.ImageView, sampler core1_0.Sampler, layout core1_0.ImageLayout, descriptorType core1_0.DescriptorType) {
	w.writes = append(w.writes, core1_0.WriteDescriptorSet{
		DstBinding:     binding,
		DescriptorType: descriptorType,
		ImageInfo: []core1_0.DescriptorImageInfo{
			{
				Sampler:     sampler,
				ImageView:   imageView,
				ImageLayout: layout,
			},
		},
	})
}

func (w *Writer) WriteBuffer(binding int, buffer core1_0.Buffer, offset, size int, descriptorType core1_0.DescriptorType) {
	w.writes = append(w.writes, core1_0.WriteDescriptorSet{
		DstBinding:     binding,
		DescriptorType: descriptorType,
		BufferInfo: []core1_0.DescriptorBufferInfo{
			{
				Buffer: buffer,
				Offset: offset,
				Range:  size,
			},
		},
	})
}

func (w *Writer) Clear() {
	w.writes = w.writes[:0]
}

func (w *Writer) Writes() []core1_0.WriteDescriptorSet {
	return w.writes
}

// UpdateSet points every batched write at set and applies them
func (w *Writer) UpdateSet(updater SetUpdater, set core1_0.DescriptorSet) error {
	if len(w.writes) == 0 {
		return nil
	}

	for i := range w.writes {
		w.writes[i].DstSet = set
	}

	err := updater.UpdateDescriptorSets(w.writes, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d descriptors", len(w.writes))
	}
	return nil
}
