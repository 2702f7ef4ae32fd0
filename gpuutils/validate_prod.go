//go:build !debug_gpu_lifecycle

package gpuutils

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_gpu_lifecycle build tag is present
func DebugValidate(validatable Validatable) {
}
