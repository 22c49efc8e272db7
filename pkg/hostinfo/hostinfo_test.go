package hostinfo

import (
	"encoding/json"
	"runtime"
	"testing"
)

func TestCollect(t *testing.T) {
	info := Collect()

	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("OS/Arch = %s/%s", info.OS, info.Arch)
	}
	if info.CPUs <= 0 {
		t.Errorf("CPUs = %d", info.CPUs)
	}

	switch runtime.GOOS {
	case "linux", "darwin":
		if info.Machine == "" {
			t.Error("Machine should be detected")
		}
		if info.MemoryBytes == 0 {
			t.Logf("Warning: memory detection failed on %s", runtime.GOOS)
		}
	default:
		if info.Kernel != "" {
			t.Errorf("Kernel = %q on unsupported platform", info.Kernel)
		}
	}
}

func TestInfoJSON(t *testing.T) {
	data, err := json.Marshal(&Info{OS: "linux", Arch: "amd64", CPUs: 4})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"os":"linux","arch":"amd64","cpus":4}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}
