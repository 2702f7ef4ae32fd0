package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/frames"
	"golang.org/x/exp/slog"
)

// SwapchainFactory builds a swapchain for the current surface state, optionally retiring the old
// one. Surface negotiation belongs to the caller.
type SwapchainFactory func(old khr_swapchain.Swapchain) (khr_swapchain.Swapchain, error)

// Swapchain implements frames.Presenter with a khr_swapchain.Swapchain
type Swapchain struct {
	logger    *slog.Logger
	device    *Device
	extension khr_swapchain.Extension
	queue     core1_0.Queue
	factory   SwapchainFactory

	swapchain khr_swapchain.Swapchain
	images    []core1_0.Image
}

var _ frames.Presenter = &Swapchain{}

// NewSwapchain creates the first swapchain with factory and presents on presentQueueFamily
func NewSwapchain(logger *slog.Logger, dev *Device, presentQueueFamily int, factory SwapchainFactory) (*Swapchain, error) {
	if dev.extensionData.Swapchain == nil {
		return nil, errors.Newf("the device extension %s is not active", khr_swapchain.ExtensionName)
	}

	swapchain := &Swapchain{
		logger:    logger,
		device:    dev,
		extension: dev.extensionData.Swapchain,
		queue:     dev.Queue(presentQueueFamily).(*Queue).Queue,
		factory:   factory,
	}

	err := swapchain.build()
	if err != nil {
		return nil, err
	}
	return swapchain, nil
}

func (s *Swapchain) build() error {
	created, err := s.factory(s.swapchain)
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}

	images, _, err := created.SwapchainImages()
	if err != nil {
		created.Destroy(s.device.callbacks)
		return errors.Wrap(err, "failed to retrieve swapchain images")
	}

	if s.swapchain != nil {
		s.swapchain.Destroy(s.device.callbacks)
	}
	s.swapchain = created
	s.images = images
	return nil
}

func (s *Swapchain) Handle() khr_swapchain.Swapchain { return s.swapchain }

func (s *Swapchain) Images() []core1_0.Image { return s.images }

func (s *Swapchain) Acquire(timeout time.Duration, signal device.Semaphore) (int, common.VkResult, error) {
	semaphores, err := coreSemaphores(signal)
	if err != nil {
		return 0, core1_0.VKErrorUnknown, err
	}

	var semaphore core1_0.Semaphore
	if len(semaphores) > 0 {
		semaphore = semaphores[0]
	}
	return s.swapchain.AcquireNextImage(timeout, semaphore, nil)
}

func (s *Swapchain) Present(imageIndex int, wait device.Semaphore) (common.VkResult, error) {
	semaphores, err := coreSemaphores(wait)
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}

	return s.extension.QueuePresent(s.queue, khr_swapchain.PresentInfo{
		WaitSemaphores: semaphores,
		Swapchains:     []khr_swapchain.Swapchain{s.swapchain},
		ImageIndices:   []int{imageIndex},
	})
}

// Recreate rebuilds the swapchain, retiring the current one
func (s *Swapchain) Recreate() error {
	s.logger.Debug("Swapchain::Recreate")
	return s.build()
}

func (s *Swapchain) Destroy() {
	if s.swapchain != nil {
		s.swapchain.Destroy(s.device.callbacks)
		s.swapchain = nil
		s.images = nil
	}
}
