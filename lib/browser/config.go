package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

var ErrBrowserNotFound = errors.New("browser executable not found")

type Config struct {
	// ExecPath is an explicit path to a chrome/chromium executable.
	ExecPath string `json:"exec_path"`
	// RemoteURL connects to an already running browser's devtools endpoint
	// (ws:// or http://) instead of launching one.
	RemoteURL   string `json:"remote_url"`
	UserDataDir string `json:"user_data_dir"`
	Proxy       string `json:"proxy"`
	// Flags are extra command line switches, "name" or "name=value".
	Flags []string `json:"flags"`

	NavigationTimeoutSeconds int `json:"navigation_timeout_seconds"`
	ActionTimeoutSeconds     int `json:"action_timeout_seconds"`
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeoutSeconds <= 0 {
		return time.Second * 30
	}
	return time.Duration(c.NavigationTimeoutSeconds) * time.Second
}

func (c Config) actionTimeout() time.Duration {
	if c.ActionTimeoutSeconds <= 0 {
		return time.Second * 10
	}
	return time.Duration(c.ActionTimeoutSeconds) * time.Second
}

func (c Config) allocatorOptions(execPath string, headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.ExecPath(execPath))
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if c.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.UserDataDir))
	}
	if c.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(c.Proxy))
	}
	for _, flag := range c.Flags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(flag, "-"), "=")
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
			continue
		}
		opts = append(opts, chromedp.Flag(name, true))
	}
	return opts
}

func execCandidates(goos string) []string {
	switch goos {
	case "windows":
		return []string{
			"chrome.exe",
			"msedge.exe",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		}
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"google-chrome",
			"chromium",
		}
	default:
		return []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
			"headless-shell",
			"chrome",
		}
	}
}

type execLookup struct {
	goos     string
	lookPath func(string) (string, error)
	exists   func(string) bool
}

var defaultLookup = execLookup{
	goos:     runtime.GOOS,
	lookPath: exec.LookPath,
	exists: func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	},
}

func (l execLookup) resolve(explicit string) (string, error) {
	if explicit != "" {
		if !l.exists(explicit) {
			return "", fmt.Errorf("%w at: %s", ErrBrowserNotFound, explicit)
		}
		return explicit, nil
	}

	candidates := execCandidates(l.goos)
	for _, candidate := range candidates {
		if filepath.IsAbs(candidate) || strings.ContainsAny(candidate, `/\`) {
			if l.exists(candidate) {
				return candidate, nil
			}
			continue
		}
		path, err := l.lookPath(candidate)
		if err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (%s), tried: %s", ErrBrowserNotFound, l.goos, strings.Join(candidates, ", "))
}

// ResolveExecPath finds the browser executable for the current platform,
// preferring explicit when it is set.
func ResolveExecPath(explicit string) (string, error) {
	return defaultLookup.resolve(explicit)
}
