//go:build !debug_gpu_lifecycle

package deletion

const debugValidation = false
