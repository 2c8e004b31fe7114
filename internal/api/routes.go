package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	RouteTypeCollection        = "entity.paragraphs_type.collection"
	RouteTypeDeleteForm        = "entity.paragraphs_type.delete_form"
	RouteMultipleDeleteConfirm = "paragraph_delete.multiple_delete_confirm"
)

type Middleware func(http.Handler) http.Handler

// Routes names the admin pages so handlers can be guarded and linked by name.
// Guards for a route must be added before the route is handled.
type Routes struct {
	mux    *http.ServeMux
	paths  map[string]string
	guards map[string][]Middleware
}

func NewRoutes(mux *http.ServeMux) *Routes {
	return &Routes{
		mux:    mux,
		paths:  map[string]string{},
		guards: map[string][]Middleware{},
	}
}

// Guard registers mw to run ahead of the handler of the named route.
func (rt *Routes) Guard(name string, mw Middleware) {
	rt.guards[name] = append(rt.guards[name], mw)
}

// Handle mounts h at path under name. Guards wrap h directly; outer wraps
// the guarded handler, first element outermost.
func (rt *Routes) Handle(name, path string, h http.Handler, outer ...Middleware) {
	guards := rt.guards[name]
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	for i := len(outer) - 1; i >= 0; i-- {
		h = outer[i](h)
	}
	rt.paths[name] = path
	rt.mux.Handle(path, h)
}

// URL builds the path of a named route. Params fill the {name} segments.
func (rt *Routes) URL(name string, params map[string]string, query url.Values) (string, error) {
	path, ok := rt.paths[name]
	if !ok {
		return "", fmt.Errorf("unknown route %q", name)
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}")
		v, ok := params[key]
		if !ok || v == "" {
			return "", fmt.Errorf("route %q: missing parameter %q", name, key)
		}
		segments[i] = url.PathEscape(v)
	}
	out := strings.Join(segments, "/")
	if len(query) > 0 {
		out += "?" + query.Encode()
	}
	return out, nil
}

// AbsoluteURL is URL prefixed with the scheme and host the request came in on.
func (rt *Routes) AbsoluteURL(r *http.Request, name string, params map[string]string, query url.Values) (string, error) {
	path, err := rt.URL(name, params, query)
	if err != nil {
		return "", err
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host + path, nil
}
