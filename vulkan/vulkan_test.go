package vulkan

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/core/v2/mocks"
	"github.com/vkngwrapper/lifecycle/deletion"
	"github.com/vkngwrapper/lifecycle/device/devicetest"
)

func TestPoolResultWithoutMaintenance1(t *testing.T) {
	require.Equal(t, core1_1.VkErrorOutOfPoolMemory, poolResult(core1_0.VKErrorOutOfDeviceMemory, false))
	require.Equal(t, core1_1.VkErrorOutOfPoolMemory, poolResult(core1_0.VKErrorOutOfHostMemory, false))
	require.Equal(t, core1_0.VKErrorFragmentedPool, poolResult(core1_0.VKErrorFragmentedPool, false))
	require.Equal(t, core1_0.VKSuccess, poolResult(core1_0.VKSuccess, false))

	require.Equal(t, core1_0.VKErrorOutOfDeviceMemory, poolResult(core1_0.VKErrorOutOfDeviceMemory, true))
}

func TestQueueRejectsForeignObjects(t *testing.T) {
	dev := devicetest.New()
	semaphore, _, err := dev.CreateSemaphore()
	require.NoError(t, err)

	_, err = coreSemaphores(semaphore)
	require.Error(t, err)

	semaphores, err := coreSemaphores(nil)
	require.NoError(t, err)
	require.Nil(t, semaphores)
}

func TestReleaseKindMismatchPanics(t *testing.T) {
	queue := deletion.NewQueue(testLogger(), "test")
	queue.Push(Release{Kind: ReleaseBuffer, Object: "not a buffer"})

	require.Panics(t, func() {
		queue.Flush()
	})
	require.Panics(t, func() {
		Release{Kind: ReleaseKind(99)}.Release()
	})
	require.Equal(t, "DescriptorSetLayout", ReleaseDescriptorSetLayout.String())
}

func TestReleaseDestroysEachKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	buffer := mocks.NewMockBuffer(ctrl)
	image := mocks.NewMockImage(ctrl)
	imageView := mocks.NewMockImageView(ctrl)
	sampler := mocks.NewMockSampler(ctrl)
	pipeline := mocks.NewMockPipeline(ctrl)
	pipelineLayout := mocks.NewMockPipelineLayout(ctrl)
	setLayout := mocks.NewMockDescriptorSetLayout(ctrl)
	fence := mocks.NewMockFence(ctrl)
	semaphore := mocks.NewMockSemaphore(ctrl)
	commandPool := mocks.NewMockCommandPool(ctrl)
	memory := mocks.NewMockDeviceMemory(ctrl)

	queue := deletion.NewQueue(testLogger(), "objects")
	queue.Push(Release{Kind: ReleaseDeviceMemory, Object: memory})
	queue.Push(Release{Kind: ReleaseBuffer, Object: buffer})
	queue.Push(Release{Kind: ReleaseImage, Object: image})
	queue.Push(Release{Kind: ReleaseImageView, Object: imageView})
	queue.Push(Release{Kind: ReleaseSampler, Object: sampler})
	queue.Push(Release{Kind: ReleaseDescriptorSetLayout, Object: setLayout})
	queue.Push(Release{Kind: ReleasePipelineLayout, Object: pipelineLayout})
	queue.Push(Release{Kind: ReleasePipeline, Object: pipeline})
	queue.Push(Release{Kind: ReleaseCommandPool, Object: commandPool})
	queue.Push(Release{Kind: ReleaseSemaphore, Object: semaphore})
	queue.Push(Release{Kind: ReleaseFence, Object: fence})

	gomock.InOrder(
		fence.EXPECT().Destroy(nil),
		semaphore.EXPECT().Destroy(nil),
		commandPool.EXPECT().Destroy(nil),
		pipeline.EXPECT().Destroy(nil),
		pipelineLayout.EXPECT().Destroy(nil),
		setLayout.EXPECT().Destroy(nil),
		sampler.EXPECT().Destroy(nil),
		imageView.EXPECT().Destroy(nil),
		image.EXPECT().Destroy(nil),
		buffer.EXPECT().Destroy(nil),
		memory.EXPECT().Free(nil),
	)

	queue.Flush()
	require.Equal(t, 0, queue.Len())
}

type recordingSubmitter struct {
	calls         int
	commandBuffer core1_0.CommandBuffer
}

func (s *recordingSubmitter) SubmitAndWait(record func(commandBuffer core1_0.CommandBuffer) error) error {
	s.calls++
	if s.commandBuffer == nil {
		return nil
	}
	return record(s.commandBuffer)
}

func TestUploadBufferRecordsCopy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	commandBuffer := mocks.EasyMockCommandBuffer(ctrl)
	staging := mocks.EasyMockBuffer(ctrl)
	dst := mocks.EasyMockBuffer(ctrl)

	commandBuffer.EXPECT().CmdCopyBuffer(staging, dst, []core1_0.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: 256},
	}).Return(nil)

	submitter := &recordingSubmitter{commandBuffer: commandBuffer}
	require.NoError(t, UploadBuffer(submitter, staging, dst, 256))
	require.Equal(t, 1, submitter.calls)
}

func TestUploadBufferRejectsEmptyCopies(t *testing.T) {
	submitter := &recordingSubmitter{}

	require.Error(t, UploadBuffer(submitter, nil, nil, 0))
	require.Equal(t, 0, submitter.calls)

	require.NoError(t, UploadBuffer(submitter, nil, nil, 64))
	require.Equal(t, 1, submitter.calls)

	require.Error(t, CopyBuffer(nil, nil, nil, -1))
}
