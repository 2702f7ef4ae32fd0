// Package devicetest provides an in-memory GPU that implements the device seam. Submissions are
// held as pending work and only complete when a fence attached to them is waited on, or when
// CompleteAll is called, which lets tests observe exactly when the host blocks.
package devicetest

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/lifecycle/device"
)

// Device is a fake GPU. The zero value is not usable, call New.
type Device struct {
	// Events is an ordered log of every host-visible interaction
	Events []string

	Fences     []*Fence
	Semaphores []*Semaphore
	Contexts   []*CommandContext
	Submitted  []device.Submission

	DescriptorPools []*DescriptorPool

	// FailFenceCreation causes CreateFence to fail
	FailFenceCreation bool
	// FailDescriptorPoolCreation causes CreateDescriptorPool to fail
	FailDescriptorPoolCreation bool
	// FailDescriptorAllocation, when set, is returned from every descriptor set allocation
	FailDescriptorAllocation error
	// ExhaustDescriptorPools causes every descriptor pool to report that it is out of space
	ExhaustDescriptorPools bool
	// HangGPU causes pending work to never complete; fence waits time out
	HangGPU bool

	pending        []*pendingWork
	maxPending     int
	queues         map[int]*Queue
	waitIdleCalls  int
	destroyedCount int
}

type pendingWork struct {
	submission device.Submission
	ops        []func()
}

var _ device.Device = &Device{}

func New() *Device {
	return &Device{queues: make(map[int]*Queue)}
}

func (d *Device) log(format string, args ...any) {
	d.Events = append(d.Events, fmt.Sprintf(format, args...))
}

// Pending is the number of submissions the GPU has not finished
func (d *Device) Pending() int { return len(d.pending) }

// MaxPending is the high-water mark of Pending over the device's lifetime
func (d *Device) MaxPending() int { return d.maxPending }

// WaitIdleCalls is the number of times the host waited for the whole device to go idle
func (d *Device) WaitIdleCalls() int { return d.waitIdleCalls }

// Destroyed is the number of fences, semaphores and command contexts destroyed so far
func (d *Device) Destroyed() int { return d.destroyedCount }

// CompleteAll finishes every pending submission in submission order
func (d *Device) CompleteAll() {
	for len(d.pending) > 0 {
		d.completeNext()
	}
}

func (d *Device) completeNext() {
	work := d.pending[0]
	d.pending = d.pending[1:]

	for _, op := range work.ops {
		op()
	}
	if work.submission.Fence != nil {
		fence := work.submission.Fence.(*Fence)
		fence.signaled = true
		d.log("gpu signal %s", fence.Name)
	}
}

func (d *Device) CreateFence(signaled bool) (device.Fence, common.VkResult, error) {
	if d.FailFenceCreation {
		return nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}
	fence := &Fence{
		Name:     fmt.Sprintf("fence%d", len(d.Fences)),
		device:   d,
		signaled: signaled,
	}
	d.Fences = append(d.Fences, fence)
	return fence, core1_0.VKSuccess, nil
}

func (d *Device) CreateSemaphore() (device.Semaphore, common.VkResult, error) {
	semaphore := &Semaphore{Name: fmt.Sprintf("semaphore%d", len(d.Semaphores)), device: d}
	d.Semaphores = append(d.Semaphores, semaphore)
	return semaphore, core1_0.VKSuccess, nil
}

func (d *Device) CreateCommandContext(queueFamilyIndex int) (device.CommandContext, common.VkResult, error) {
	context := &CommandContext{
		Name:             fmt.Sprintf("commands%d", len(d.Contexts)),
		QueueFamilyIndex: queueFamilyIndex,
		device:           d,
	}
	d.Contexts = append(d.Contexts, context)
	return context, core1_0.VKSuccess, nil
}

func (d *Device) Queue(queueFamilyIndex int) device.Queue {
	queue, ok := d.queues[queueFamilyIndex]
	if !ok {
		queue = &Queue{FamilyIndex: queueFamilyIndex, device: d}
		d.queues[queueFamilyIndex] = queue
	}
	return queue
}

func (d *Device) WaitIdle() (common.VkResult, error) {
	d.waitIdleCalls++
	d.log("device wait idle")
	if d.HangGPU && len(d.pending) > 0 {
		return core1_0.VKErrorDeviceLost, core1_0.VKErrorDeviceLost.ToError()
	}
	d.CompleteAll()
	return core1_0.VKSuccess, nil
}

// Fence is a fake completion signal
type Fence struct {
	Name      string
	device    *Device
	signaled  bool
	destroyed bool
}

func (f *Fence) Signaled() bool  { return f.signaled }
func (f *Fence) Destroyed() bool { return f.destroyed }

func (f *Fence) Wait(timeout time.Duration) (common.VkResult, error) {
	f.device.log("wait %s", f.Name)
	if f.signaled {
		return core1_0.VKSuccess, nil
	}
	if f.device.HangGPU {
		return core1_0.VKTimeout, nil
	}

	// The GPU finishes in submission order, so everything up to the submission
	// carrying this fence completes first
	for i := 0; i < len(f.device.pending); i++ {
		if f.device.pending[i].submission.Fence == device.Fence(f) {
			for j := 0; j <= i; j++ {
				f.device.completeNext()
			}
			return core1_0.VKSuccess, nil
		}
	}

	return core1_0.VKTimeout, nil
}

func (f *Fence) Reset() (common.VkResult, error) {
	f.device.log("reset %s", f.Name)
	f.signaled = false
	return core1_0.VKSuccess, nil
}

func (f *Fence) Destroy() {
	f.destroyed = true
	f.device.destroyedCount++
}

// Semaphore is a fake ordering signal
type Semaphore struct {
	Name      string
	device    *Device
	destroyed bool
}

func (s *Semaphore) Destroyed() bool { return s.destroyed }

func (s *Semaphore) Destroy() {
	s.destroyed = true
	s.device.destroyedCount++
}

// CommandContext is a fake command pool and buffer. Operations recorded with Record run
// when the GPU completes the submission that carried them.
type CommandContext struct {
	Name             string
	QueueFamilyIndex int
	Recording        bool
	device           *Device
	ops              []func()
	destroyed        bool
}

// Record queues an operation that runs when the GPU executes the recorded commands
func (c *CommandContext) Record(op func()) error {
	if !c.Recording {
		return errors.Newf("%s is not recording", c.Name)
	}
	c.ops = append(c.ops, op)
	return nil
}

func (c *CommandContext) Destroyed() bool { return c.destroyed }

func (c *CommandContext) Reset() (common.VkResult, error) {
	c.device.log("reset %s", c.Name)
	c.ops = nil
	c.Recording = false
	return core1_0.VKSuccess, nil
}

func (c *CommandContext) Begin() (common.VkResult, error) {
	if c.Recording {
		return core1_0.VKErrorUnknown, errors.Newf("%s is already recording", c.Name)
	}
	c.device.log("begin %s", c.Name)
	c.Recording = true
	return core1_0.VKSuccess, nil
}

func (c *CommandContext) End() (common.VkResult, error) {
	if !c.Recording {
		return core1_0.VKErrorUnknown, errors.Newf("%s is not recording", c.Name)
	}
	c.device.log("end %s", c.Name)
	c.Recording = false
	return core1_0.VKSuccess, nil
}

func (c *CommandContext) CommandBuffer() core1_0.CommandBuffer { return nil }

func (c *CommandContext) Destroy() {
	c.destroyed = true
	c.device.destroyedCount++
}

// Queue is a fake queue that hands submissions to the owning Device
type Queue struct {
	FamilyIndex int
	device      *Device
}

func (q *Queue) Submit(submission device.Submission) (common.VkResult, error) {
	name := "<nil>"
	var ops []func()
	if submission.Commands != nil {
		context := submission.Commands.(*CommandContext)
		if context.Recording {
			return core1_0.VKErrorUnknown, errors.Newf("%s submitted while still recording", context.Name)
		}
		name = context.Name
		ops = context.ops
		context.ops = nil
	}
	if submission.Fence != nil && submission.Fence.(*Fence).signaled {
		return core1_0.VKErrorUnknown, errors.Newf("%s submitted while already signaled", submission.Fence.(*Fence).Name)
	}

	q.device.log("submit %s", name)
	q.device.Submitted = append(q.device.Submitted, submission)
	q.device.pending = append(q.device.pending, &pendingWork{submission: submission, ops: ops})
	if len(q.device.pending) > q.device.maxPending {
		q.device.maxPending = len(q.device.pending)
	}
	return core1_0.VKSuccess, nil
}

func (q *Queue) WaitIdle() (common.VkResult, error) {
	return q.device.WaitIdle()
}

// OutOfPoolMemory is the result an exhausted DescriptorPool reports
var OutOfPoolMemory = core1_1.VkErrorOutOfPoolMemory

// DescriptorPool is a fake descriptor pool that holds at most MaxSets sets
type DescriptorPool struct {
	ID        int
	Info      device.DescriptorPoolCreateInfo
	Allocated int
	Resets    int
	destroyed bool
	device    *Device
}

func (p *DescriptorPool) Destroyed() bool { return p.destroyed }

func (p *DescriptorPool) AllocateSet(layout core1_0.DescriptorSetLayout, next common.Options) (core1_0.DescriptorSet, common.VkResult, error) {
	if p.destroyed {
		return nil, core1_0.VKErrorUnknown, errors.Newf("descriptor pool %d used after destroy", p.ID)
	}
	if p.device.FailDescriptorAllocation != nil {
		return nil, core1_0.VKErrorUnknown, p.device.FailDescriptorAllocation
	}
	if p.device.ExhaustDescriptorPools || p.Allocated >= p.Info.MaxSets {
		return nil, OutOfPoolMemory, OutOfPoolMemory.ToError()
	}
	p.Allocated++
	return nil, core1_0.VKSuccess, nil
}

func (p *DescriptorPool) Reset() (common.VkResult, error) {
	p.Resets++
	p.Allocated = 0
	return core1_0.VKSuccess, nil
}

func (p *DescriptorPool) Destroy() {
	p.destroyed = true
}

func (d *Device) CreateDescriptorPool(o device.DescriptorPoolCreateInfo) (device.DescriptorPool, common.VkResult, error) {
	if d.FailDescriptorPoolCreation {
		return nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}
	pool := &DescriptorPool{
		ID:     len(d.DescriptorPools),
		Info:   o,
		device: d,
	}
	d.DescriptorPools = append(d.DescriptorPools, pool)
	return pool, core1_0.VKSuccess, nil
}
