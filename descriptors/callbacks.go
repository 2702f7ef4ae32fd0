package descriptors

// PoolCallback is executed when the allocator creates, resets, or destroys one of its pools
type PoolCallback func(
	allocator *GrowableAllocator,
	poolID int,
	maxSets int,
	userData any,
)

// PoolCallbackOptions is an optional set of callbacks that will be executed on descriptor pool
// lifecycle events. It can be helpful when the consumer requires allocator-level insight into
// how many pools exist and how large they are.
type PoolCallbackOptions struct {
	Create   PoolCallback
	Reset    PoolCallback
	Destroy  PoolCallback
	UserData any
}

type poolCallbacks struct {
	Callbacks *PoolCallbackOptions
	Allocator *GrowableAllocator
}

func (c *poolCallbacks) Create(pool *resourcePool) {
	if c.Callbacks != nil && c.Callbacks.Create != nil {
		c.Callbacks.Create(c.Allocator, pool.id, pool.maxSets, c.Callbacks.UserData)
	}
}

func (c *poolCallbacks) Reset(pool *resourcePool) {
	if c.Callbacks != nil && c.Callbacks.Reset != nil {
		c.Callbacks.Reset(c.Allocator, pool.id, pool.maxSets, c.Callbacks.UserData)
	}
}

func (c *poolCallbacks) Destroy(pool *resourcePool) {
	if c.Callbacks != nil && c.Callbacks.Destroy != nil {
		c.Callbacks.Destroy(c.Allocator, pool.id, pool.maxSets, c.Callbacks.UserData)
	}
}
