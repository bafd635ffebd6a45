package server

import (
	"bytes"
	"io/fs"
	"log"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var minifiable = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
}

type asset struct {
	data    []byte
	modTime time.Time
}

// staticHandler serves the frontend. HTML, CSS and JS are minified once and
// kept in memory.
type staticHandler struct {
	fsys fs.FS
	m    *minify.M

	mu    sync.Mutex
	cache map[string]*asset
}

func newStaticHandler(fsys fs.FS, minifyAssets bool) *staticHandler {
	h := &staticHandler{
		fsys:  fsys,
		cache: make(map[string]*asset),
	}
	if minifyAssets {
		h.m = minify.New()
		h.m.AddFunc("text/html", html.Minify)
		h.m.AddFunc("text/css", css.Minify)
		h.m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	}
	return h
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	mediatype, ok := minifiable[path.Ext(name)]
	if !ok {
		http.ServeFileFS(w, r, h.fsys, name)
		return
	}

	a, err := h.load(name, mediatype)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		log.Printf("Error loading %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mediatype+"; charset=utf-8")
	http.ServeContent(w, r, name, a.modTime, bytes.NewReader(a.data))
}

func (h *staticHandler) load(name, mediatype string) (*asset, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if a, ok := h.cache[name]; ok {
		return a, nil
	}

	data, err := fs.ReadFile(h.fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	if h.m != nil {
		out, err := h.m.Bytes(mediatype, data)
		if err != nil {
			// Serve the original rather than nothing.
			log.Printf("Error minifying %s: %v", name, err)
		} else {
			data = out
		}
	}

	a := &asset{data: data, modTime: time.Now()}
	h.cache[name] = a
	return a, nil
}
