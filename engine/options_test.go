package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/descriptors"
)

const fullOptions = `
frames_in_flight = 2
fence_timeout = "250ms"
frame_descriptor_hint = 100
global_descriptor_hint = 5
max_sets_per_pool = 512
growth_factor = 2.0
graphics_queue_family = 0
transfer_queue_family = 1

[[frame_ratios]]
type = "uniform_buffer"
ratio = 3.0

[[frame_ratios]]
type = "storage_buffer"
ratio = 1.0

[[global_ratios]]
type = "storage_image"
ratio = 1.0
`

func TestLoadOptions(t *testing.T) {
	options, err := LoadOptions(strings.NewReader(fullOptions))
	require.NoError(t, err)

	require.Equal(t, 2, options.FramesInFlight)
	require.Equal(t, Duration(250*time.Millisecond), options.FenceTimeout)
	require.Equal(t, 100, options.FrameDescriptorHint)
	require.Equal(t, 5, options.GlobalDescriptorHint)
	require.Equal(t, 512, options.MaxSetsPerPool)
	require.Equal(t, 2.0, options.GrowthFactor)
	require.NotNil(t, options.TransferQueueFamily)
	require.Equal(t, 1, *options.TransferQueueFamily)
	require.Equal(t, 1, options.immediateQueueFamily())

	frameOptions := options.frameOptions()
	require.Equal(t, 2, frameOptions.FramesInFlight)
	require.Equal(t, 250*time.Millisecond, frameOptions.FenceTimeout)
	require.Equal(t, []descriptors.PoolSizeRatio{
		{Type: core1_0.DescriptorTypeUniformBuffer, Ratio: 3},
		{Type: core1_0.DescriptorTypeStorageBuffer, Ratio: 1},
	}, frameOptions.DescriptorRatios)
	require.Equal(t, 512, frameOptions.Descriptors.MaxSetsPerPool)

	hint, ratios, allocatorOptions := options.globalDescriptorOptions()
	require.Equal(t, 5, hint)
	require.Equal(t, []descriptors.PoolSizeRatio{
		{Type: core1_0.DescriptorTypeStorageImage, Ratio: 1},
	}, ratios)
	require.Equal(t, 2.0, allocatorOptions.GrowthFactor)
}

func TestLoadEmptyOptionsUsesDefaults(t *testing.T) {
	options, err := LoadOptions(strings.NewReader(""))
	require.NoError(t, err)

	require.Nil(t, options.TransferQueueFamily)
	require.Equal(t, 0, options.immediateQueueFamily())
	require.Nil(t, options.frameOptions().DescriptorRatios)

	hint, ratios, _ := options.globalDescriptorOptions()
	require.Equal(t, DefaultGlobalDescriptorHint, hint)
	require.Equal(t, DefaultGlobalRatios, ratios)
}

func TestLoadOptionsRejectsBadInput(t *testing.T) {
	testCases := map[string]string{
		"UnknownKey":         `frame_in_flight = 2`,
		"BadDuration":        `fence_timeout = "soon"`,
		"NegativeFrames":     `frames_in_flight = -1`,
		"NegativeTimeout":    `fence_timeout = "-1s"`,
		"UnknownDescriptor":  "[[frame_ratios]]\ntype = \"texture\"\nratio = 1.0",
		"MalformedStructure": `frames_in_flight = `,
	}

	for name, document := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOptions(strings.NewReader(document))
			require.Error(t, err)
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	text, err := Duration(1500 * time.Millisecond).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1.5s", string(text))
}
