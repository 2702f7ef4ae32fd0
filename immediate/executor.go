// Package immediate runs one-off GPU work, such as staged uploads, and blocks the host until the
// GPU has finished it.
package immediate

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating an Executor
type CreateOptions struct {
	// QueueFamilyIndex is the family the executor's command context is created for. It must
	// match the family of the queue the executor submits to.
	QueueFamilyIndex int
	// WaitTimeout bounds the wait for submitted work. device.NoTimeout is used when it is left
	// 0. A timeout is fatal.
	WaitTimeout time.Duration
}

// Executor owns a single command context and fence and uses them to run recordings to completion
// one at a time. It is not synchronized.
type Executor struct {
	logger      *slog.Logger
	queue       device.Queue
	commands    device.CommandContext
	fence       device.Fence
	waitTimeout time.Duration
}

// New creates an executor that submits to queue
func New(logger *slog.Logger, dev device.Device, queue device.Queue, options CreateOptions) (*Executor, error) {
	commands, res, err := dev.CreateCommandContext(options.QueueFamilyIndex)
	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "failed to create the immediate command context")
	}

	fence, res, err := dev.CreateFence(false)
	if err != nil || res != core1_0.VKSuccess {
		commands.Destroy()
		return nil, gpuutils.FatalResult(res, err, "failed to create the immediate fence")
	}

	waitTimeout := options.WaitTimeout
	if waitTimeout == 0 {
		waitTimeout = device.NoTimeout
	}

	return &Executor{
		logger:      logger,
		queue:       queue,
		commands:    commands,
		fence:       fence,
		waitTimeout: waitTimeout,
	}, nil
}

// SubmitAndWait records commands with record, submits them and blocks until the GPU has finished
// executing them. If record returns an error nothing is submitted and the error is returned.
func (e *Executor) SubmitAndWait(record func(commandBuffer core1_0.CommandBuffer) error) error {
	e.logger.Debug("Executor::SubmitAndWait")

	if e.fence == nil {
		return errors.New("attempted to submit to a destroyed immediate executor")
	}

	res, err := e.fence.Reset()
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to reset the immediate fence")
	}

	res, err = e.commands.Reset()
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to reset the immediate command context")
	}

	res, err = e.commands.Begin()
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to begin the immediate command context")
	}

	err = record(e.commands.CommandBuffer())
	if err != nil {
		_, resetErr := e.commands.Reset()
		if resetErr != nil {
			return errors.CombineErrors(err, resetErr)
		}
		return err
	}

	res, err = e.commands.End()
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to end the immediate command context")
	}

	res, err = e.queue.Submit(device.Submission{
		Commands: e.commands,
		Fence:    e.fence,
	})
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to submit immediate commands")
	}

	res, err = e.fence.Wait(e.waitTimeout)
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed waiting on immediate commands")
	}

	return nil
}

// Destroy releases the executor's command context and fence. No work may be outstanding.
func (e *Executor) Destroy() {
	e.logger.Debug("Executor::Destroy")

	if e.commands != nil {
		e.commands.Destroy()
		e.commands = nil
	}
	if e.fence != nil {
		e.fence.Destroy()
		e.fence = nil
	}
}
