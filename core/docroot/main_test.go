package docroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) string {
	root := t.TempDir()
	for name, content := range map[string]string{
		"hello.html":     "hello",
		"404.html":       "not found",
		"400.html":       "bad request",
		"501.html":       "not implemented",
		"sub/index.html": "sub index",
		"empty/.keep":    "",
	} {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func TestNew(t *testing.T) {
	root := setup(t)
	_, err := New(filepath.Join(root, "missing"))
	require.Error(t, err)
	_, err = New(filepath.Join(root, "hello.html"))
	require.Error(t, err)
	r, err := New(root)
	require.NoError(t, err)
	require.Equal(t, root, r.Root())
}

func TestResolve(t *testing.T) {
	r, err := New(setup(t))
	require.NoError(t, err)
	cases := map[string]struct {
		request  string
		expected string
	}{
		"file": {
			request:  "GET /hello.html HTTP/1.1\r\n\r\n",
			expected: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello\r\n\r\n",
		},
		"directory index": {
			request:  "GET /sub HTTP/1.1\r\n\r\n",
			expected: "HTTP/1.1 200 OK\r\nContent-Length: 9\r\n\r\nsub index\r\n\r\n",
		},
		"directory without index": {
			request:  "GET /empty/ HTTP/1.1\r\n\r\n",
			expected: "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\n\r\nnot found\r\n\r\n",
		},
		"missing": {
			request:  "GET /nope.html HTTP/1.1\r\n\r\n",
			expected: "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\n\r\nnot found\r\n\r\n",
		},
		"query string": {
			request:  "GET /hello.html?x=1 HTTP/1.1\r\n\r\n",
			expected: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello\r\n\r\n",
		},
		"no escape from root": {
			request:  "GET /../../../etc/passwd HTTP/1.1\r\n\r\n",
			expected: "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\n\r\nnot found\r\n\r\n",
		},
		"no target": {
			request:  "GET\r\n\r\n",
			expected: "HTTP/1.1 400 Bad Request\r\nContent-Length: 11\r\n\r\nbad request\r\n\r\n",
		},
		"unsupported method": {
			request:  "POST /hello.html HTTP/1.1\r\n\r\n",
			expected: "HTTP/1.1 501 Not Implemented\r\nContent-Length: 15\r\n\r\nnot implemented\r\n\r\n",
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.expected, string(r.Resolve(c.request)))
		})
	}
}

func TestResolveMissingErrorPage(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n\r\n\r\n", string(r.Resolve("GET /x HTTP/1.1\r\n\r\n")))
}

func TestRedirect(t *testing.T) {
	r, err := New(setup(t))
	require.NoError(t, err)
	require.Equal(t,
		"HTTP/1.1 301 Moved Permanently\r\nLocation: https://example.com/a/b?c=d\r\n\r\n",
		string(r.Redirect("GET /a/b?c=d HTTP/1.1\r\nHost: x\r\n\r\n", "https://example.com")))
	require.Equal(t,
		"HTTP/1.1 400 Bad Request\r\nContent-Length: 11\r\n\r\nbad request\r\n\r\n",
		string(r.Redirect("PUT / HTTP/1.1\r\n\r\n", "https://example.com")))
	require.Equal(t,
		"HTTP/1.1 400 Bad Request\r\nContent-Length: 11\r\n\r\nbad request\r\n\r\n",
		string(r.Redirect("GET\r\n\r\n", "https://example.com")))
}

func TestCodes(t *testing.T) {
	require.Equal(t, "HTTP/1.1 200 OK", defaultCodes.StatusLine(200))
	require.Equal(t, "Unknown", defaultCodes.StatusLine(418))
}
