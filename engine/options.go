package engine

import (
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/descriptors"
	"github.com/vkngwrapper/lifecycle/frames"
)

const (
	// DefaultGlobalDescriptorHint is the set capacity hint for the engine-lifetime allocator
	DefaultGlobalDescriptorHint int = 10
)

// DefaultGlobalRatios are the per-set descriptor counts for the engine-lifetime allocator when
// Options.GlobalRatios is empty
var DefaultGlobalRatios = []descriptors.PoolSizeRatio{
	{Type: core1_0.DescriptorTypeStorageImage, Ratio: 1},
}

// Duration is a time.Duration written in configuration as a Go duration string, e.g. "1s"
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

var descriptorTypeNames = map[string]core1_0.DescriptorType{
	"sampler":                core1_0.DescriptorTypeSampler,
	"combined_image_sampler": core1_0.DescriptorTypeCombinedImageSampler,
	"sampled_image":          core1_0.DescriptorTypeSampledImage,
	"storage_image":          core1_0.DescriptorTypeStorageImage,
	"uniform_texel_buffer":   core1_0.DescriptorTypeUniformTexelBuffer,
	"storage_texel_buffer":   core1_0.DescriptorTypeStorageTexelBuffer,
	"uniform_buffer":         core1_0.DescriptorTypeUniformBuffer,
	"storage_buffer":         core1_0.DescriptorTypeStorageBuffer,
	"uniform_buffer_dynamic": core1_0.DescriptorTypeUniformBufferDynamic,
	"storage_buffer_dynamic": core1_0.DescriptorTypeStorageBufferDynamic,
	"input_attachment":       core1_0.DescriptorTypeInputAttachment,
}

// DescriptorType is a core1_0.DescriptorType written in configuration by its snake case name,
// e.g. "uniform_buffer"
type DescriptorType core1_0.DescriptorType

func (t *DescriptorType) UnmarshalText(text []byte) error {
	descriptorType, ok := descriptorTypeNames[strings.ToLower(string(text))]
	if !ok {
		return errors.Newf("unknown descriptor type %q", string(text))
	}
	*t = DescriptorType(descriptorType)
	return nil
}

// Ratio is the configuration form of descriptors.PoolSizeRatio
type Ratio struct {
	Type  DescriptorType `toml:"type"`
	Ratio float32        `toml:"ratio"`
}

func poolSizeRatios(ratios []Ratio) []descriptors.PoolSizeRatio {
	if len(ratios) == 0 {
		return nil
	}

	converted := make([]descriptors.PoolSizeRatio, 0, len(ratios))
	for _, ratio := range ratios {
		converted = append(converted, descriptors.PoolSizeRatio{
			Type:  core1_0.DescriptorType(ratio.Type),
			Ratio: ratio.Ratio,
		})
	}
	return converted
}

// Options configures an Engine. Every field may be left zero to use its default.
type Options struct {
	// FramesInFlight defaults to frames.DefaultFramesInFlight
	FramesInFlight int `toml:"frames_in_flight"`
	// FenceTimeout bounds each frame's wait on its slot. It defaults to frames.DefaultFenceTimeout.
	FenceTimeout Duration `toml:"fence_timeout"`

	// FrameDescriptorHint is the expected number of sets one frame allocates
	FrameDescriptorHint int `toml:"frame_descriptor_hint"`
	// GlobalDescriptorHint is the expected number of engine-lifetime sets
	GlobalDescriptorHint int     `toml:"global_descriptor_hint"`
	MaxSetsPerPool       int     `toml:"max_sets_per_pool"`
	GrowthFactor         float64 `toml:"growth_factor"`
	FrameRatios          []Ratio `toml:"frame_ratios"`
	GlobalRatios         []Ratio `toml:"global_ratios"`

	// GraphicsQueueFamily is the family frames are submitted to
	GraphicsQueueFamily int `toml:"graphics_queue_family"`
	// TransferQueueFamily routes immediate submissions to a dedicated queue. When it is nil they
	// are submitted to the graphics queue.
	TransferQueueFamily *int `toml:"transfer_queue_family"`

	// AbortHandler receives every fatal error the engine encounters. The default logs the error
	// and panics.
	AbortHandler func(err error) `toml:"-"`
}

// LoadOptions decodes TOML options. Unknown keys are rejected.
func LoadOptions(reader io.Reader) (Options, error) {
	var options Options
	err := toml.NewDecoder(reader).DisallowUnknownFields().Decode(&options)
	if err != nil {
		return Options{}, errors.Wrap(err, "failed to decode engine options")
	}

	if options.FramesInFlight < 0 {
		return Options{}, errors.Newf("frames_in_flight must be positive, but was %d", options.FramesInFlight)
	}
	if options.FenceTimeout < 0 {
		return Options{}, errors.Newf("fence_timeout must be positive, but was %s", time.Duration(options.FenceTimeout))
	}
	return options, nil
}

func (o Options) frameOptions() frames.CreateOptions {
	return frames.CreateOptions{
		FramesInFlight:   o.FramesInFlight,
		FenceTimeout:     time.Duration(o.FenceTimeout),
		QueueFamilyIndex: o.GraphicsQueueFamily,
		DescriptorHint:   o.FrameDescriptorHint,
		DescriptorRatios: poolSizeRatios(o.FrameRatios),
		Descriptors: descriptors.CreateOptions{
			GrowthFactor:   o.GrowthFactor,
			MaxSetsPerPool: o.MaxSetsPerPool,
		},
	}
}

func (o Options) globalDescriptorOptions() (int, []descriptors.PoolSizeRatio, descriptors.CreateOptions) {
	hint := o.GlobalDescriptorHint
	if hint == 0 {
		hint = DefaultGlobalDescriptorHint
	}

	ratios := poolSizeRatios(o.GlobalRatios)
	if len(ratios) == 0 {
		ratios = DefaultGlobalRatios
	}

	return hint, ratios, descriptors.CreateOptions{
		Name:           "global",
		GrowthFactor:   o.GrowthFactor,
		MaxSetsPerPool: o.MaxSetsPerPool,
	}
}

func (o Options) immediateQueueFamily() int {
	if o.TransferQueueFamily != nil {
		return *o.TransferQueueFamily
	}
	return o.GraphicsQueueFamily
}
