package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/CTAG07/philterz/pkg/templating"
)

// indexTemplate is rendered for the root path.
const indexTemplate = "index"

type Server struct {
	cm          *ConfigManager
	app         *App
	logger      *slog.Logger
	templateAPI *TemplateAPI
	serverAPI   *ServerAPI
	mux         *http.ServeMux
}

func NewServer(cm *ConfigManager, app *App, logger *slog.Logger, actionChan chan string) *Server {
	server := &Server{
		cm:          cm,
		app:         app,
		logger:      logger,
		templateAPI: NewTemplateAPI(app, logger),
		serverAPI:   NewServerAPI(cm, app.tm, actionChan, logger),
		mux:         http.NewServeMux(),
	}

	apiMux := http.NewServeMux()
	server.templateAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// The health check stays unauthenticated so something like docker can use it.
	server.mux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)
	server.mux.Handle("/api/", Authenticate(cm, apiMux))
	server.mux.HandleFunc("/favicon.ico", handleFavicon)
	server.mux.HandleFunc("/", server.handlePage)
	return server
}

// Handler returns the root handler with request IDs and logging applied.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.logger, s.mux)
}

// resolveTemplate maps a request path to a loaded template. "/about"
// matches about, about.dj.html or about.tmpl.html; "/" uses index.
func (s *Server) resolveTemplate(path string) (string, bool) {
	name := strings.Trim(path, "/")
	if name == "" {
		name = indexTemplate
	}
	names := s.app.tm.GetTemplateNames()
	for _, candidate := range []string{name, name + templating.DjangoSuffix, name + templating.NativeSuffix} {
		if slices.Contains(names, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// handlePage renders the template named by the request path. Table data
// and a "request" map with the path, method, query and request ID are
// passed as render data.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	name, ok := s.resolveTemplate(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := s.app.TableData(r.Context())
	if err != nil {
		s.logger.Error("Failed to load table data", "error", err, "request_id", requestID(r))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}
	data["request"] = map[string]any{
		"path":       r.URL.Path,
		"method":     r.Method,
		"query":      query,
		"request_id": requestID(r),
	}

	var buf bytes.Buffer
	if err = s.app.tm.Execute(&buf, name, data); err != nil {
		s.logger.Error("Failed to execute template", "template", name, "error", err, "request_id", requestID(r))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("Serving page", "template", name, "remote_addr", r.RemoteAddr, "request_id", requestID(r))

	for k, v := range s.cm.Get().Server.Headers {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, _ = buf.WriteTo(w)
}

// handleFavicon answers favicon requests with no content so browsers stop
// asking for one.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
