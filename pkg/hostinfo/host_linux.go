//go:build linux

package hostinfo

import "golang.org/x/sys/unix"

// uname returns the machine hardware name and kernel release.
func uname() (machine, kernel string, ok bool) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", "", false
	}
	return unix.ByteSliceToString(u.Machine[:]), unix.ByteSliceToString(u.Release[:]), true
}

// totalSystemMemory returns total system RAM on Linux using sysinfo.
func totalSystemMemory() (uint64, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	return uint64(info.Totalram) * uint64(info.Unit), true
}
