package camera

// probe checks whether any /dev/video* node is held open by some process.
func probe() (bool, error) {
	return procHoldsDevice(videoDevices()), nil
}
