// Package browser opens reports in the system default browser.
package browser

import (
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
)

// command returns the argv that opens target on goos.
func command(goos, target string) []string {
	switch goos {
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", target}
	case "darwin":
		return []string{"open", target}
	default:
		return []string{"xdg-open", target}
	}
}

// Open opens target (an http:// or file:// URL) in the default browser.
// Best-effort: the returned error only reports a failure to start the opener.
func Open(target string) error {
	argv := command(runtime.GOOS, target)
	return exec.Command(argv[0], argv[1:]...).Start()
}

// FileURL converts a local path to a file:// URL.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if runtime.GOOS == "windows" {
		u.Path = "/" + u.Path
	}
	return u.String()
}
