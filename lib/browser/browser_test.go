package browser

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func fakeLookup(goos string, onPath map[string]string, files map[string]bool) execLookup {
	return execLookup{
		goos: goos,
		lookPath: func(name string) (string, error) {
			path, ok := onPath[name]
			if !ok {
				return "", exec.ErrNotFound
			}
			return path, nil
		},
		exists: func(path string) bool {
			return files[path]
		},
	}
}

func TestResolveExecPath(t *testing.T) {
	cases := []struct {
		name     string
		lookup   execLookup
		explicit string
		expected string
		missing  bool
	}{
		{
			name:     "explicit path exists",
			lookup:   fakeLookup("linux", nil, map[string]bool{"/opt/chrome/chrome": true}),
			explicit: "/opt/chrome/chrome",
			expected: "/opt/chrome/chrome",
		},
		{
			name:     "explicit path missing is not searched past",
			lookup:   fakeLookup("linux", map[string]string{"chromium": "/usr/bin/chromium"}, nil),
			explicit: "/opt/chrome/chrome",
			missing:  true,
		},
		{
			name:     "linux searches path in order",
			lookup:   fakeLookup("linux", map[string]string{"chromium": "/usr/bin/chromium", "chrome": "/usr/bin/chrome"}, nil),
			expected: "/usr/bin/chromium",
		},
		{
			name:     "darwin app bundle",
			lookup:   fakeLookup("darwin", nil, map[string]bool{"/Applications/Chromium.app/Contents/MacOS/Chromium": true}),
			expected: "/Applications/Chromium.app/Contents/MacOS/Chromium",
		},
		{
			name:     "windows install dir",
			lookup:   fakeLookup("windows", nil, map[string]bool{`C:\Program Files\Google\Chrome\Application\chrome.exe`: true}),
			expected: `C:\Program Files\Google\Chrome\Application\chrome.exe`,
		},
		{
			name:    "nothing installed",
			lookup:  fakeLookup("linux", nil, nil),
			missing: true,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			path, err := test.lookup.resolve(test.explicit)
			if test.missing {
				require.True(t, errors.Is(err, ErrBrowserNotFound), "expected ErrBrowserNotFound, got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, path)
		})
	}
}

func TestNewProviderRemoteSkipsLookup(t *testing.T) {
	p, err := NewProvider(Config{RemoteURL: "ws://127.0.0.1:9222", ExecPath: "/does/not/exist"})
	require.NoError(t, err)
	require.Empty(t, p.ExecPath())
}

func TestRemoteHandlesGetOwnBrowserContext(t *testing.T) {
	remote, err := NewProvider(Config{RemoteURL: "ws://127.0.0.1:9222"})
	require.NoError(t, err)
	require.Len(t, remote.contextOptions(), 1)

	local := &Provider{cfg: Config{}, execPath: "/usr/bin/chromium"}
	require.Empty(t, local.contextOptions())
}

func TestSelectValueScriptQuoting(t *testing.T) {
	script := selectValueScript(ID("act_id"), "a\x07\"b</script>")
	require.True(t, strings.HasSuffix(script, `})(document.querySelector("#act_id"), "a\u0007\"b\u003c/script\u003e")`), script)

	// invalid utf-8 becomes the replacement character instead of a go escape
	script = selectValueScript(ID("act_id"), "\xff")
	require.NotContains(t, script, `\xff`)
	require.Contains(t, script, `"\ufffd"`)
}

func TestNewProviderMissingExecutable(t *testing.T) {
	_, err := NewProvider(Config{ExecPath: "/does/not/exist/chrome"})
	require.ErrorIs(t, err, ErrBrowserNotFound)
}

func TestLocators(t *testing.T) {
	require.Equal(t, "#serial1", ID("serial1").String())
	require.Equal(t, "//a[normalize-space(.)='ออกจากระบบ']", LinkText("ออกจากระบบ").String())
	require.Equal(t, `//a[normalize-space(.)="it's"]`, LinkText("it's").String())
	require.Equal(t,
		`//a[normalize-space(.)=concat('a"b', "'", 'c')]`,
		LinkText(`a"b'c`).String(),
	)
	require.Equal(t, `document.querySelector("#act_id")`, ID("act_id").jsElement())
	require.Contains(t, XPath("//table").jsElement(), `document.evaluate("//table"`)
	require.True(t, Locator{}.IsZero())
}

func TestAllocatorFlags(t *testing.T) {
	cfg := Config{Flags: []string{"--no-sandbox", "window-size=1280,800"}, Proxy: "socks5://127.0.0.1:1080"}
	headless := cfg.allocatorOptions("/usr/bin/chromium", true)
	visible := cfg.allocatorOptions("/usr/bin/chromium", false)
	// visible adds exactly one override of the default headless flag
	require.Len(t, visible, len(headless)+1)
}

func TestCookieParams(t *testing.T) {
	params := CookieParams([]*network.Cookie{
		{Name: "PHPSESSID", Value: "abc", Domain: "alumni.npru.ac.th", Path: "/", Session: true},
		{Name: "remember", Value: "1", Domain: "alumni.npru.ac.th", Path: "/", Expires: 1893456000},
	})
	require.Len(t, params, 2)
	require.Nil(t, params[0].Expires)
	require.NotNil(t, params[1].Expires)
	require.Equal(t, int64(1893456000), params[1].Expires.Time().Unix())
}
