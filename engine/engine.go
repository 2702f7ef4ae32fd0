// Package engine ties the lifecycle components together into one explicitly-passed rendering
// context: a frame ring, an immediate executor, and an engine-lifetime descriptor allocator and
// deletion queue.
package engine

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/deletion"
	"github.com/vkngwrapper/lifecycle/descriptors"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/frames"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"github.com/vkngwrapper/lifecycle/immediate"
	"golang.org/x/exp/slog"
)

type Engine struct {
	logger *slog.Logger
	device device.Device
	abort  func(err error)

	ring              *frames.Ring
	immediate         *immediate.Executor
	globalDescriptors *descriptors.GrowableAllocator
	globalDeletion    *deletion.Queue

	cleanedUp bool
}

// New creates every lifecycle component the engine owns. The device and presenter remain owned
// by the caller and must outlive the engine.
func New(logger *slog.Logger, dev device.Device, presenter frames.Presenter, options Options) (*Engine, error) {
	engine := &Engine{
		logger:         logger,
		device:         dev,
		abort:          options.AbortHandler,
		globalDeletion: deletion.NewQueue(logger, "global"),
	}
	if engine.abort == nil {
		engine.abort = engine.logAndPanic
	}

	hint, ratios, allocatorOptions := options.globalDescriptorOptions()
	globalDescriptors, err := descriptors.New(logger, dev, hint, ratios, allocatorOptions)
	if err != nil {
		return nil, err
	}
	engine.globalDescriptors = globalDescriptors

	ring, err := frames.New(logger, dev, presenter, options.frameOptions())
	if err != nil {
		globalDescriptors.DestroyPools()
		return nil, err
	}
	engine.ring = ring

	family := options.immediateQueueFamily()
	executor, err := immediate.New(logger, dev, dev.Queue(family), immediate.CreateOptions{
		QueueFamilyIndex: family,
	})
	if err != nil {
		destroyErr := ring.Destroy()
		globalDescriptors.DestroyPools()
		return nil, errors.CombineErrors(err, destroyErr)
	}
	engine.immediate = executor

	logger.LogAttrs(context.Background(), slog.LevelDebug, "created engine",
		slog.Int("framesInFlight", ring.FramesInFlight()),
		slog.Int("immediateQueueFamily", family))

	return engine, nil
}

func (e *Engine) logAndPanic(err error) {
	e.logger.LogAttrs(context.Background(), slog.LevelError, "fatal gpu lifecycle error",
		slog.String("error", err.Error()),
		slog.String("detail", fmt.Sprintf("%+v", err)))
	panic(err)
}

// check hands fatal errors to the abort handler and returns err unchanged
func (e *Engine) check(err error) error {
	if err != nil && gpuutils.IsFatal(err) {
		e.abort(err)
	}
	return err
}

func (e *Engine) Ring() *frames.Ring { return e.ring }

func (e *Engine) Immediate() *immediate.Executor { return e.immediate }

// GlobalDescriptors issues sets that live as long as the engine. It is internally synchronized.
func (e *Engine) GlobalDescriptors() *descriptors.GrowableAllocator { return e.globalDescriptors }

// GlobalDeletion is flushed once, during Cleanup
func (e *Engine) GlobalDeletion() *deletion.Queue { return e.globalDeletion }

// Draw runs one frame: it resizes the presenter if that was requested, begins a frame, hands it
// to record and ends it. A frame abandoned because the presenter went stale is skipped without
// calling record. If record fails the frame is still ended so the ring stays consistent.
func (e *Engine) Draw(record func(frame *frames.Frame) error) error {
	if e.cleanedUp {
		return errors.New("attempted to draw with an engine that has been cleaned up")
	}

	if e.ring.ResizeRequested() {
		err := e.ring.Resize()
		if err != nil {
			return e.check(err)
		}
	}

	frame, err := e.ring.BeginFrame()
	if err != nil {
		return e.check(err)
	}
	if frame == nil {
		return nil
	}

	recordErr := record(frame)
	err = e.ring.EndFrame()
	if recordErr != nil {
		return e.check(errors.CombineErrors(errors.Wrapf(recordErr, "failed to record frame %d", frame.Number()), err))
	}
	return e.check(err)
}

// ImmediateSubmit runs record on the immediate executor and blocks until the GPU has finished it
func (e *Engine) ImmediateSubmit(record func(commandBuffer core1_0.CommandBuffer) error) error {
	if e.cleanedUp {
		return errors.New("attempted to submit with an engine that has been cleaned up")
	}
	return e.check(e.immediate.SubmitAndWait(record))
}

// Cleanup waits for the device to go idle and destroys everything the engine owns, most recently
// created first. Calling it more than once is a no-op.
func (e *Engine) Cleanup() error {
	if e.cleanedUp {
		return nil
	}
	e.logger.Debug("Engine::Cleanup")
	e.cleanedUp = true

	var cleanupErr error
	res, err := e.device.WaitIdle()
	if err != nil || res != core1_0.VKSuccess {
		cleanupErr = gpuutils.FatalResult(res, err, "failed waiting for the device to go idle during cleanup")
	}

	e.immediate.Destroy()
	cleanupErr = errors.CombineErrors(cleanupErr, e.ring.Destroy())
	e.globalDeletion.Flush()
	e.globalDescriptors.DestroyPools()

	return cleanupErr
}
