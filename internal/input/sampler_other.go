//go:build !windows

package input

// PlatformSampler returns nil: the global hook reports keys reliably here.
func PlatformSampler() KeySampler {
	return nil
}
