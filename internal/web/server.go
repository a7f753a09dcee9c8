package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/architect"
	"github.com/renderinc/notion-architect/internal/generate"
	"github.com/renderinc/notion-architect/internal/llm"
	"github.com/renderinc/notion-architect/internal/metrics"
	"github.com/renderinc/notion-architect/internal/notion"
	"github.com/renderinc/notion-architect/internal/render"
	"github.com/renderinc/notion-architect/internal/search"
	"github.com/renderinc/notion-architect/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the components the server fronts.
type Deps struct {
	DB         *storage.DB
	Index      *search.Index
	Generator  llm.Generator
	Controller *generate.Controller
	Store      architect.Store
	ParentID   string // where generated pages are created
	Log        zerolog.Logger
}

// Server serves the web UI and its JSON and websocket endpoints.
type Server struct {
	Deps
	reader    *architect.Reconstructor
	templates *template.Template
	upgrader  websocket.Upgrader
}

// GenerateRequest is the first message a client sends on /ws/generate.
type GenerateRequest struct {
	Description string   `json:"description"`
	ParentID    string   `json:"parent_id,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	JSONMode    bool     `json:"json_mode,omitempty"`
}

// message is what the server sends for each event.
type message struct {
	generate.Event
	Summary string `json:"summary,omitempty"`
}

// NewServer parses the embedded templates and returns a Server over deps.
func NewServer(deps Deps) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}

	return &Server{
		Deps:      deps,
		reader:    architect.NewReconstructor(deps.Store, deps.Log),
		templates: tmpl,
	}, nil
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.PathPrefix("/static/").Handler(http.FileServer(http.FS(staticFS)))
	router.HandleFunc("/", s.handleIndex).Methods("GET")
	router.HandleFunc("/ws/generate", s.handleGenerate)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/examples", s.handleExamples).Methods("GET")
	api.HandleFunc("/runs", s.handleRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleRun).Methods("GET")
	api.HandleFunc("/pages/{id}", s.handlePage).Methods("GET")
	api.HandleFunc("/pages/{id}/markdown", s.handlePageMarkdown).Methods("GET")
	api.HandleFunc("/pages/{id}/html", s.handlePageHTML).Methods("GET")

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", metrics.Handler())

	return router
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Provider": s.Generator.Name(),
		"ParentID": s.ParentID,
		"Sampling": s.Controller.Sampling(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.Log.Error().Err(err).Msg("render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleGenerate upgrades to a websocket, reads one GenerateRequest and
// streams the run's events until it ends. Closing the socket cancels the run.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	var req GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.Log.Warn().Err(err).Msg("read generate request")
		return
	}
	parentID := req.ParentID
	if parentID == "" {
		parentID = s.ParentID
	}
	if req.Description == "" || parentID == "" {
		rejectRequest(conn, "description and parent page are required")
		return
	}
	controller := s.Controller
	if req.Temperature != nil || req.TopP != nil || req.JSONMode {
		sampling := controller.Sampling().Override(req.Temperature, req.TopP, req.JSONMode)
		if err := sampling.Validate(); err != nil {
			rejectRequest(conn, err.Error())
			return
		}
		controller = controller.With(generate.WithSampling(sampling))
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// The client sends nothing more; any read result means it went away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	emit := func(ev generate.Event) {
		m := message{Event: ev}
		if ev.Kind == generate.KindState {
			m.Summary = ev.Summary()
		}
		if err := conn.WriteJSON(m); err != nil {
			cancel()
		}
	}

	res, err := controller.Run(ctx, parentID, req.Description, emit)
	if err != nil {
		s.Log.Info().Err(err).Str("description", req.Description).Msg("generation failed")
	} else {
		s.Log.Info().Str("run", res.RunID).Str("page", res.PageID).Int("attempts", res.Attempts).Msg("generation done")
	}

	closeNormal(conn)
}

// rejectRequest reports a bad request as a failed state and closes.
func rejectRequest(conn *websocket.Conn, reason string) {
	_ = conn.WriteJSON(message{
		Event:   generate.Event{Kind: generate.KindState, State: generate.StateFailed, Error: reason},
		Summary: "failed: " + reason,
	})
	closeNormal(conn)
}

func closeNormal(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// handleExamples renders example search results as an HTML fragment.
func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	query := r.URL.Query().Get("q")
	if query == "" {
		fmt.Fprint(w, `<div class="empty-state">
			<p>Search the imported examples by prompt or content</p>
		</div>`)
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	results, err := s.Index.Search(query, limit)
	if err != nil {
		fmt.Fprintf(w, `<div class="error">
			<strong>Error:</strong> Search failed: %s
		</div>`, template.HTMLEscapeString(err.Error()))
		return
	}

	if len(results) == 0 {
		fmt.Fprintf(w, `<div class="no-results">
			<p>No examples found for "<strong>%s</strong>"</p>
		</div>`, template.HTMLEscapeString(query))
		return
	}

	fmt.Fprintf(w, `<div class="results-header">
		<p>Found <strong>%d</strong> examples for "<strong>%s</strong>"</p>
	</div>`, len(results), template.HTMLEscapeString(query))

	for i, result := range results {
		preview := ""
		if fragments, ok := result.Fragments["Content"]; ok && len(fragments) > 0 {
			preview = fragments[0]
		}

		fmt.Fprintf(w, `<div class="result-card">
			<div class="result-number">%d</div>
			<div class="result-content">
				<h3>%s</h3>`,
			i+1, template.HTMLEscapeString(result.Prompt))

		if preview != "" {
			// fragments come from the highlighter, which escapes the source text
			fmt.Fprintf(w, `<p class="result-preview">%s</p>`, template.HTML(preview))
		}

		fmt.Fprintf(w, `<div class="result-footer">
				<span class="result-score">Score: %.3f</span>
			</div>
		</div>
	</div>`, result.Score)
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l >= 0 {
			limit = l
		}
	}

	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, err := s.DB.GetRun(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	attempts, err := s.DB.ListAttempts(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"run":      run,
		"attempts": attempts,
	})
}

// pageStatus maps a reconstruction error to an HTTP status.
func pageStatus(err error) int {
	switch {
	case errors.Is(err, notion.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, notion.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, notion.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.reader.Reconstruct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, pageStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handlePageMarkdown(w http.ResponseWriter, r *http.Request) {
	page, err := s.reader.Reconstruct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), pageStatus(err))
		return
	}
	md, err := render.Markdown(page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(md))
}

func (s *Server) handlePageHTML(w http.ResponseWriter, r *http.Request) {
	page, err := s.reader.Reconstruct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), pageStatus(err))
		return
	}
	out, err := render.HTML(page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbCount, _ := s.DB.CountExamples()
	indexCount, _ := s.Index.Count()

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	generator := "ok"
	if err := s.Generator.Health(ctx); err != nil {
		generator = err.Error()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"examples_in_db":    dbCount,
		"examples_in_index": indexCount,
		"provider":          s.Generator.Name(),
		"generator":         generator,
	})
}
