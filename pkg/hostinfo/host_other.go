//go:build !linux && !darwin

package hostinfo

func uname() (machine, kernel string, ok bool) {
	return "", "", false
}

func totalSystemMemory() (uint64, bool) {
	return 0, false
}
