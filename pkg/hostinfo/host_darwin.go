//go:build darwin

package hostinfo

import "golang.org/x/sys/unix"

func uname() (machine, kernel string, ok bool) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", "", false
	}
	return unix.ByteSliceToString(u.Machine[:]), unix.ByteSliceToString(u.Release[:]), true
}

// totalSystemMemory returns total system RAM on macOS using sysctl.
func totalSystemMemory() (uint64, bool) {
	mem, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, false
	}
	return mem, true
}
