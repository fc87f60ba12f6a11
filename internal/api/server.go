// Package api provides the web dashboard: HTML views rendered from
// embedded templates, JSON endpoints for git metadata, and the
// chat-message endpoint driving the chat-turn pipeline.
package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"

	"repochat/internal/chat"
	"repochat/internal/git"
	"repochat/internal/llm"
	"repochat/internal/store"
)

//go:embed templates
var templatesFS embed.FS

// Config carries the server's injected dependencies.
type Config struct {
	Store    store.Store
	Git      git.Client
	Factory  llm.Factory
	Models   *llm.ModelCache
	Defaults chat.Defaults
	// UploadsDir receives stored multipart attachments.
	UploadsDir string
	// CloneDir is where newly added repositories are cloned.
	CloneDir string
}

// Server provides the dashboard handlers.
type Server struct {
	store      store.Store
	git        git.Client
	factory    llm.Factory
	models     *llm.ModelCache
	pipeline   *chat.Pipeline
	uploadsDir string
	cloneDir   string
	pages      map[string]*template.Template
	repoMu     sync.Map // per-repo mutex: repo name -> *sync.Mutex
}

// NewServer creates the dashboard server.
func NewServer(cfg Config) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{
		store:      cfg.Store,
		git:        cfg.Git,
		factory:    cfg.Factory,
		models:     cfg.Models,
		uploadsDir: cfg.UploadsDir,
		cloneDir:   cfg.CloneDir,
		pages:      pages,
		pipeline: &chat.Pipeline{
			Store:    cfg.Store,
			Git:      cfg.Git,
			Factory:  cfg.Factory,
			Defaults: cfg.Defaults,
		},
	}, nil
}

// Router returns an http.Handler for all dashboard routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/repositories", http.StatusSeeOther)
	})

	mux.HandleFunc("GET /repositories", s.listRepositories)
	mux.HandleFunc("GET /repositories/add", s.addRepositoryForm)
	mux.HandleFunc("POST /repositories/add", s.addRepository)

	mux.HandleFunc("GET /global_instructions", s.globalInstructions)
	mux.HandleFunc("POST /save_global_instructions", s.saveGlobalInstructions)

	mux.HandleFunc("POST /set_chat_model", s.setChatModel)

	mux.HandleFunc("GET /{repoName}", s.redirectToChats)
	mux.HandleFunc("GET /{repoName}/chats", s.listChats)
	mux.HandleFunc("GET /{repoName}/chat", s.createChat)
	mux.HandleFunc("GET /{repoName}/chat/{chatNumber}", s.showChat)
	mux.HandleFunc("POST /{repoName}/chat/{chatNumber}", s.chatMessage)

	mux.HandleFunc("POST /{repoName}/chat/{chatNumber}/save_agent_instructions", s.saveAgentInstructions)
	mux.HandleFunc("POST /{repoName}/chat/{chatNumber}/save_state", s.saveState)
	mux.HandleFunc("POST /{repoName}/chat/{chatNumber}/load_state", s.loadState)
	mux.HandleFunc("POST /{repoName}/chat/{chatNumber}/toggle_push_after_commit", s.togglePushAfterCommit)

	mux.HandleFunc("GET /{repoName}/chat/{chatNumber}/raw/{messageIndex}", s.rawMessages)
	mux.HandleFunc("GET /{repoName}/chat/{chatNumber}/json_viewer/{messageIndex}", s.jsonViewer)

	mux.HandleFunc("GET /{repoName}/git_log", s.gitLog)
	mux.HandleFunc("GET /{repoName}/git_branches", s.gitBranches)
	mux.HandleFunc("POST /{repoName}/git_switch_branch", s.gitSwitchBranch)
	mux.HandleFunc("POST /{repoName}/git_update", s.gitUpdate)

	return mux
}

// lockRepo returns the held mutex for a repository. Handlers doing a
// read-modify-write of a chat file hold it for the duration so two
// turns against the same repo cannot interleave their writes.
func (s *Server) lockRepo(repoName string) *sync.Mutex {
	v, _ := s.repoMu.LoadOrStore(repoName, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

func parsePages() (map[string]*template.Template, error) {
	tmplFS, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("getting templates subfs: %w", err)
	}

	layoutBytes, err := fs.ReadFile(tmplFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}

	pageNames := []string{
		"repositories.html",
		"add_repository.html",
		"chats.html",
		"chat.html",
		"global_instructions.html",
		"json_viewer.html",
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pageBytes, err := fs.ReadFile(tmplFS, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		tmpl, err := template.New("layout.html").Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", name, err)
		}
		if _, err := tmpl.New(name).Parse(string(pageBytes)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		slog.Error("template not found", "name", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		slog.Error("render error", "name", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
