package browser

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"windows", "rundll32"},
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
	}
	for _, tt := range tests {
		argv := command(tt.goos, "http://127.0.0.1:8743/")
		if argv[0] != tt.want {
			t.Errorf("%s: argv[0] = %q, want %q", tt.goos, argv[0], tt.want)
		}
		if argv[len(argv)-1] != "http://127.0.0.1:8743/" {
			t.Errorf("%s: target should be last arg, got %v", tt.goos, argv)
		}
	}
}

func TestFileURL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix path layout")
	}
	dir := t.TempDir()
	got := FileURL(filepath.Join(dir, "report dir", "report.html"))
	if !strings.HasPrefix(got, "file:///") {
		t.Errorf("FileURL = %q, want file:/// prefix", got)
	}
	if !strings.HasSuffix(got, "/report%20dir/report.html") {
		t.Errorf("FileURL = %q, spaces should be escaped", got)
	}
}
