package descriptors

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"github.com/vkngwrapper/lifecycle/internal/utils"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var allocatorCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	allocatorCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return allocatorCreateFlagsMapping.FlagsToString(f)
}

const (
	// AllocatorCreateExternallySynchronized ensures that this allocator will not be synchronized
	// internally. The consumer must guarantee it is used from only one thread at a time, which is
	// the case for the allocators owned by frame slots.
	AllocatorCreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	AllocatorCreateExternallySynchronized.Register("AllocatorCreateExternallySynchronized")
}

const (
	// DefaultGrowthFactor is the multiplier applied to the per-pool set capacity each time the
	// allocator has to create a pool because none were ready. Growth always adds at least one set,
	// so a capacity of 1 grows to 2, 3, 4, 6 and so on.
	DefaultGrowthFactor float64 = 1.5
	// DefaultMaxSetsPerPool is the ceiling the per-pool set capacity will never grow past
	DefaultMaxSetsPerPool int = 4096
)

// CreateOptions contains optional settings when creating a GrowableAllocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// Name is used in logs and detailed map output
	Name string
	// GrowthFactor must be at least 1. DefaultGrowthFactor is used when it is left 0.
	GrowthFactor float64
	// MaxSetsPerPool caps pool growth. DefaultMaxSetsPerPool is used when it is left 0.
	MaxSetsPerPool int

	// Callbacks is an optional set of callbacks executed on pool lifecycle events
	Callbacks *PoolCallbackOptions
}

// New creates a GrowableAllocator and its first pool
//
// factory - The object descriptor pools will be created from
//
// capacityHint - The expected number of sets. The first pool holds 1.5x this many sets.
//
// ratios - The number of descriptors of each type to reserve per set
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, factory device.DescriptorPoolFactory, capacityHint int, ratios []PoolSizeRatio, options CreateOptions) (*GrowableAllocator, error) {
	if capacityHint < 1 {
		return nil, errors.Newf("descriptor capacity hint must be positive, but was %d", capacityHint)
	}

	useMutex := options.Flags&AllocatorCreateExternallySynchronized == 0

	allocator := &GrowableAllocator{
		logger:         logger,
		factory:        factory,
		name:           options.Name,
		mutex:          utils.OptionalMutex{UseMutex: useMutex},
		growthFactor:   options.GrowthFactor,
		maxSetsPerPool: options.MaxSetsPerPool,
		pools:          swiss.NewMap[int, *resourcePool](8),
	}
	allocator.callbacks = poolCallbacks{
		Callbacks: options.Callbacks,
		Allocator: allocator,
	}

	if allocator.growthFactor == 0 {
		allocator.growthFactor = DefaultGrowthFactor
	} else if allocator.growthFactor < 1 || math.IsNaN(allocator.growthFactor) {
		return nil, errors.Newf("descriptor pool growth factor must be at least 1, but was %f", allocator.growthFactor)
	}

	if allocator.maxSetsPerPool == 0 {
		allocator.maxSetsPerPool = DefaultMaxSetsPerPool
	} else if allocator.maxSetsPerPool < 0 {
		return nil, errors.Newf("descriptor pool max sets must be positive, but was %d", allocator.maxSetsPerPool)
	}

	allocator.ratios = append(allocator.ratios, ratios...)
	allocator.setsPerPool = allocator.clampSets(int(float64(capacityHint) * DefaultGrowthFactor))

	pool, err := allocator.createPool(allocator.setsPerPool)
	if err != nil {
		return nil, err
	}
	allocator.ready = append(allocator.ready, pool)
	allocator.grow()

	gpuutils.DebugValidate(allocator)
	return allocator, nil
}
