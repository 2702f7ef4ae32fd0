package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Submitter runs a recording to completion. It is satisfied by immediate.Executor.
type Submitter interface {
	SubmitAndWait(record func(commandBuffer core1_0.CommandBuffer) error) error
}

// CopyBuffer records a copy of size bytes from the start of src to the start of dst
func CopyBuffer(commandBuffer core1_0.CommandBuffer, src, dst core1_0.Buffer, size int) error {
	if size < 1 {
		return errors.Newf("buffer copy size must be positive, but was %d", size)
	}

	return commandBuffer.CmdCopyBuffer(src, dst, []core1_0.BufferCopy{
		{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	})
}

// UploadBuffer copies a filled staging buffer into dst and blocks until the copy has finished.
// The staging buffer may be destroyed as soon as UploadBuffer returns.
func UploadBuffer(submitter Submitter, staging, dst core1_0.Buffer, size int) error {
	if size < 1 {
		return errors.Newf("upload size must be positive, but was %d", size)
	}

	return submitter.SubmitAndWait(func(commandBuffer core1_0.CommandBuffer) error {
		return CopyBuffer(commandBuffer, staging, dst, size)
	})
}
