//go:build !linux && !darwin

package camera

// probe has no implementation on this platform; report idle.
func probe() (bool, error) {
	return false, nil
}
