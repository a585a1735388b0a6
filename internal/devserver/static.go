package devserver

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// snippet returns the tags injected into served HTML pages.
func snippet(clientScriptURL string) []byte {
	return []byte(fmt.Sprintf("<script src=\"%s\"></script><script src=\"%s\"></script>",
		html.EscapeString(clientScriptURL), clientPath))
}

// inject inserts snip before the last closing body tag, or appends it when
// the document has none.
func inject(doc, snip []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(doc), []byte("</body>"))
	if i < 0 {
		return append(append([]byte(nil), doc...), snip...)
	}
	out := make([]byte, 0, len(doc)+len(snip))
	out = append(out, doc[:i]...)
	out = append(out, snip...)
	return append(out, doc[i:]...)
}

// staticHandler serves files from a directory, injecting the live-reload
// client into HTML documents.
type staticHandler struct {
	root    string
	snippet []byte
	files   http.Handler
}

func newStaticHandler(root string, snip []byte) *staticHandler {
	return &staticHandler{root: root, snippet: snip, files: http.FileServer(http.Dir(root))}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.files.ServeHTTP(w, r)
		return
	}

	name := h.htmlFile(r.URL.Path)
	if name == "" {
		h.files.ServeHTTP(w, r)
		return
	}
	doc, err := os.ReadFile(name)
	if err != nil {
		h.files.ServeHTTP(w, r)
		return
	}

	body := inject(doc, h.snippet)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(body)
	}
}

// htmlFile resolves urlPath to an HTML file under root, following the
// directory index convention, or returns "".
func (h *staticHandler) htmlFile(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	name := filepath.Join(h.root, filepath.FromSlash(clean))

	info, err := os.Stat(name)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		// FileServer redirects directory paths without a trailing slash.
		if !strings.HasSuffix(urlPath, "/") {
			return ""
		}
		name = filepath.Join(name, "index.html")
		if info, err = os.Stat(name); err != nil || info.IsDir() {
			return ""
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return name
	}
	return ""
}
