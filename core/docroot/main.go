/*
Package docroot answers requests from the files of a document root.

Only the request line is looked at: GET requests are resolved to a file,
a directory index.html, or the 404.html page; other methods get the
501.html page. Error pages are read from the document root and
default to an empty body.
*/
package docroot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type (
	// T is safe for concurrent use: it is never modified after New.
	T struct {
		root  string
		codes Codes
	}

	// Codes maps a status code to its status line
	Codes map[int]string
)

var (
	defaultCodes = Codes{
		200: "HTTP/1.1 200 OK",
		301: "HTTP/1.1 301 Moved Permanently",
		400: "HTTP/1.1 400 Bad Request",
		404: "HTTP/1.1 404 Not Found",
		501: "HTTP/1.1 501 Not Implemented",
	}
)

// StatusLine returns the status line of code, or "Unknown"
func (c Codes) StatusLine(code int) string {
	if s, ok := c[code]; ok {
		return s
	}
	return "Unknown"
}

// New returns a resolver serving files from root, which must be an
// existing directory.
func New(root string) (*T, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "document root %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("document root %s is not a directory", root)
	}
	return &T{root: root, codes: defaultCodes}, nil
}

// Root returns the document root
func (t *T) Root() string {
	return t.root
}

// Resolve returns the response to request
func (t *T) Resolve(request string) []byte {
	if !strings.HasPrefix(request, "GET") {
		return t.page(501, "501.html")
	}
	target, ok := requestTarget(request)
	if !ok {
		return t.page(400, "400.html")
	}
	p := t.path(target)
	info, err := os.Stat(p)
	switch {
	case err != nil:
	case info.Mode().IsRegular():
		return t.file(200, p)
	case info.IsDir():
		index := filepath.Join(p, "index.html")
		if info, err := os.Stat(index); err == nil && info.Mode().IsRegular() {
			return t.file(200, index)
		}
	}
	return t.page(404, "404.html")
}

// Redirect returns a 301 response to the request target appended to
// destination.
func (t *T) Redirect(request, destination string) []byte {
	if !strings.HasPrefix(request, "GET") {
		return t.page(400, "400.html")
	}
	target, ok := requestTarget(request)
	if !ok {
		return t.page(400, "400.html")
	}
	return []byte(fmt.Sprintf("%s\r\nLocation: %s%s\r\n\r\n", t.codes.StatusLine(301), destination, target))
}

// path maps a request target to a file path that can not escape the
// document root.
func (t *T) path(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	return filepath.Join(t.root, filepath.FromSlash(filepath.Clean("/"+target)))
}

func (t *T) page(code int, name string) []byte {
	return t.file(code, filepath.Join(t.root, name))
}

func (t *T) file(code int, p string) []byte {
	content, err := os.ReadFile(p)
	if err != nil {
		content = nil
	}
	return []byte(fmt.Sprintf("%s\r\nContent-Length: %d\r\n\r\n%s\r\n\r\n", t.codes.StatusLine(code), len(content), content))
}

// requestTarget returns the second field of the request line
func requestTarget(request string) (string, bool) {
	line := request
	if i := strings.Index(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 || fields[1] == "" {
		return "", false
	}
	return fields[1], true
}
