package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/device"
)

// Queue adapts a core1_0.Queue to the device seam. Submissions must carry objects created by
// the vulkan Device.
type Queue struct {
	Queue core1_0.Queue
}

var _ device.Queue = &Queue{}

func coreSemaphores(semaphore device.Semaphore) ([]core1_0.Semaphore, error) {
	if semaphore == nil {
		return nil, nil
	}
	adapted, ok := semaphore.(*Semaphore)
	if !ok {
		return nil, errors.AssertionFailedf("semaphore of type %T was not created by the vulkan device", semaphore)
	}
	return []core1_0.Semaphore{adapted.Semaphore}, nil
}

func (q *Queue) Submit(submission device.Submission) (common.VkResult, error) {
	var submitInfo core1_0.SubmitInfo

	if submission.Commands != nil {
		submitInfo.CommandBuffers = []core1_0.CommandBuffer{submission.Commands.CommandBuffer()}
	}

	var err error
	submitInfo.WaitSemaphores, err = coreSemaphores(submission.Wait)
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}
	if len(submitInfo.WaitSemaphores) > 0 {
		submitInfo.WaitDstStageMask = []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput}
	}

	submitInfo.SignalSemaphores, err = coreSemaphores(submission.Signal)
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}

	var fence core1_0.Fence
	if submission.Fence != nil {
		adapted, ok := submission.Fence.(*Fence)
		if !ok {
			return core1_0.VKErrorUnknown, errors.AssertionFailedf("fence of type %T was not created by the vulkan device", submission.Fence)
		}
		fence = adapted.Fence
	}

	return q.Queue.Submit(fence, []core1_0.SubmitInfo{submitInfo})
}

func (q *Queue) WaitIdle() (common.VkResult, error) {
	return q.Queue.WaitIdle()
}
