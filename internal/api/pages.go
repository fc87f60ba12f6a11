package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"repochat/internal/git"
	"repochat/internal/models"
	"repochat/internal/store"
	"repochat/internal/tree"
)

type repoView struct {
	Name      string
	LocalPath string
	Branch    string
	BrowseURL string
}

func (s *Server) listRepositories(w http.ResponseWriter, r *http.Request) {
	registry, err := s.store.ListRepos()
	if err != nil {
		slog.Error("listing repositories", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var repos []repoView
	for name, cfg := range registry {
		repos = append(repos, repoView{
			Name:      name,
			LocalPath: cfg.LocalPath,
			Branch:    cfg.Branch,
			BrowseURL: git.BrowseURL(cfg.RepoURL),
		})
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })

	s.renderPage(w, "repositories.html", map[string]any{"Repos": repos})
}

func (s *Server) addRepositoryForm(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "add_repository.html", nil)
}

func (s *Server) addRepository(w http.ResponseWriter, r *http.Request) {
	repoName := r.FormValue("repoName")
	repoURL := r.FormValue("gitRepoURL")
	if repoName == "" || repoURL == "" {
		http.Error(w, "Missing repoName or gitRepoURL.", http.StatusBadRequest)
		return
	}

	localPath := filepath.Join(s.cloneDir, repoName)
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		if err := s.git.Clone(r.Context(), repoURL, localPath); err != nil {
			slog.Error("clone failed", "repo", repoName, "url", repoURL, "error", err)
			http.Error(w, "Failed to clone repository.", http.StatusInternalServerError)
			return
		}
	}

	branch, err := s.git.CurrentBranch(localPath)
	if err != nil {
		branch = ""
	}
	cfg := &models.RepoConfig{LocalPath: localPath, RepoURL: repoURL, Branch: branch}
	if err := s.store.PutRepo(repoName, cfg); err != nil {
		slog.Error("registering repository", "repo", repoName, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/"+repoName+"/chats", http.StatusSeeOther)
}

func (s *Server) redirectToChats(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+r.PathValue("repoName")+"/chats", http.StatusSeeOther)
}

type chatSummaryView struct {
	Number  int
	Status  string
	Turns   int
	Model   string
	LastMsg string
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("repoName")
	chats, err := s.store.LoadChats(repoName)
	if err != nil {
		slog.Error("loading chats", "repo", repoName, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var active, inactive []chatSummaryView
	for key, c := range chats {
		number, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		view := chatSummaryView{
			Number: number,
			Status: c.Status,
			Turns:  len(c.ChatHistory),
			Model:  c.AIModel,
		}
		if n := len(c.ChatHistory); n > 0 {
			view.LastMsg = c.ChatHistory[n-1].Timestamp
		}
		if c.IsActive() {
			active = append(active, view)
		} else {
			inactive = append(inactive, view)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Number < active[j].Number })
	sort.Slice(inactive, func(i, j int) bool { return inactive[i].Number < inactive[j].Number })

	s.renderPage(w, "chats.html", map[string]any{
		"RepoName":      repoName,
		"ActiveChats":   active,
		"InactiveChats": inactive,
	})
}

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("repoName")

	mu := s.lockRepo(repoName)
	defer mu.Unlock()

	if _, err := s.store.GetRepo(repoName); err != nil {
		http.Error(w, fmt.Sprintf("Repository '%s' not found.", repoName), http.StatusNotFound)
		return
	}
	chats, err := s.store.LoadChats(repoName)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	instructions, err := s.store.GlobalInstructions()
	if err != nil {
		slog.Warn("reading global instructions", "error", err)
	}

	number := store.NextChatNumber(chats)
	chats[strconv.Itoa(number)] = s.newChat(instructions)
	if err := s.store.SaveChats(repoName, chats); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/%s/chat/%d", repoName, number), http.StatusSeeOther)
}

func (s *Server) showChat(w http.ResponseWriter, r *http.Request) {
	repoName, number, err := chatRef(r)
	if err != nil {
		http.Error(w, "Chat not found.", http.StatusNotFound)
		return
	}
	c, err := s.store.GetChat(repoName, number)
	if err != nil {
		http.Error(w, "Chat not found.", http.StatusNotFound)
		return
	}
	cfg, err := s.store.GetRepo(repoName)
	if err != nil {
		http.Error(w, fmt.Sprintf("Repository '%s' not found.", repoName), http.StatusNotFound)
		return
	}

	provider := c.AIProvider
	if provider == "" {
		provider = s.pipeline.Defaults.Provider
	}
	model := c.AIModel
	if model == "" {
		model = s.pipeline.Defaults.Model
	}

	nodes, err := tree.Build(cfg.LocalPath, c.AttachedFiles)
	if err != nil {
		slog.Warn("building directory tree", "repo", repoName, "error", err)
	}

	// Metadata reads are best-effort: the chat view renders even when
	// the working tree is in an odd state.
	revision, _ := s.git.CurrentRevision(cfg.LocalPath)
	branch, _ := s.git.CurrentBranch(cfg.LocalPath)
	commitDate, _ := s.git.LastCommitDate(cfg.LocalPath)
	commits, _ := s.git.Commits(cfg.LocalPath, 50)
	graph, _ := s.git.CommitGraph(cfg.LocalPath, 50)

	s.renderPage(w, "chat.html", map[string]any{
		"RepoName":   repoName,
		"ChatNumber": number,
		"Chat":       c,
		"Provider":   provider,
		"Model":      model,
		"Models":     s.models.Get(provider),
		"Tree":       nodes,
		"BrowseURL":  git.BrowseURL(cfg.RepoURL),
		"Branch":     branch,
		"Revision":   revision,
		"CommitDate": commitDate,
		"Commits":    commits,
		"Graph":      graph,
	})
}

func (s *Server) globalInstructions(w http.ResponseWriter, r *http.Request) {
	text, err := s.store.GlobalInstructions()
	if err != nil {
		slog.Error("reading global instructions", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "global_instructions.html", map[string]any{"CurrentGlobal": text})
}

func (s *Server) saveGlobalInstructions(w http.ResponseWriter, r *http.Request) {
	if err := s.store.SaveGlobalInstructions(r.FormValue("globalInstructions")); err != nil {
		slog.Error("saving global instructions", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/global_instructions", http.StatusSeeOther)
}
