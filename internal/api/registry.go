package api

import "net/http"

// Registry collects the server's endpoints so routes and CLI commands
// are declared once, next to each other.
type Registry struct {
	endpoints []Endpoint
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint. Registration order is the order routes are
// installed on the mux.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes installs every endpoint on mux. Endpoints that require
// a fully started server are wrapped with initMiddleware, which should
// reject requests until startup completes.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}
