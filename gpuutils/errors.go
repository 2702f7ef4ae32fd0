package gpuutils

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
)

// ErrFatal marks failures that leave the GPU context in a state with no meaningful local
// recovery: object creation failures, a failed allocation retry, or a completion wait that timed
// out. Use errors.Is(err, ErrFatal) to detect them.
var ErrFatal = errors.New("unrecoverable gpu lifecycle failure")

// Fatal wraps err with the provided context and marks it with ErrFatal. A nil err is replaced
// with a new error built from the format string.
func Fatal(err error, format string, args ...any) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, ErrFatal)
}

// FatalResult is Fatal for calls that reported a failing VkResult without an accompanying error.
func FatalResult(res common.VkResult, err error, format string, args ...any) error {
	if err == nil {
		err = res.ToError()
	}
	return errors.WithDetailf(Fatal(err, format, args...), "vulkan result: %s", res)
}

// IsFatal reports whether err was marked by Fatal
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
