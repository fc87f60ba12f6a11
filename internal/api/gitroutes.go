package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"repochat/internal/models"
)

func (s *Server) gitLog(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("repoName")
	cfg, err := s.store.GetRepo(repoName)
	if err != nil {
		writeError(w, http.StatusNotFound, "Repository '"+repoName+"' not found.")
		return
	}
	commits, err := s.git.CommitGraph(cfg.LocalPath, 0)
	if err != nil {
		slog.Error("git log failed", "repo", repoName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read git log.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commits": commits})
}

func (s *Server) gitBranches(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("repoName")
	cfg, err := s.store.GetRepo(repoName)
	if err != nil {
		writeError(w, http.StatusNotFound, "Repository '"+repoName+"' not found.")
		return
	}
	branches, err := s.git.BranchList(cfg.LocalPath)
	if err != nil {
		slog.Error("branch list failed", "repo", repoName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list branches.")
		return
	}
	if branches == nil {
		branches = []string{}
	}
	writeJSON(w, http.StatusOK, branches)
}

type switchBranchRequest struct {
	Branch    string `json:"branch"`
	CreateNew bool   `json:"createNew"`
}

func (s *Server) gitSwitchBranch(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("repoName")

	var req switchBranchRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Malformed request body.")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Malformed request body.")
			return
		}
		req.Branch = r.FormValue("branch")
		req.CreateNew = r.FormValue("createNew") == "true" || r.FormValue("createNew") == "on"
	}
	if req.Branch == "" {
		writeError(w, http.StatusBadRequest, "No branch provided.")
		return
	}

	mu := s.lockRepo(repoName)
	defer mu.Unlock()

	cfg, err := s.store.GetRepo(repoName)
	if err != nil {
		writeError(w, http.StatusNotFound, "Repository config not found.")
		return
	}

	if req.CreateNew {
		err = s.git.CreateBranch(cfg.LocalPath, req.Branch)
	} else {
		err = s.git.Checkout(cfg.LocalPath, req.Branch)
	}
	if err != nil {
		slog.Error("branch switch failed", "repo", repoName, "branch", req.Branch, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	cfg.Branch = req.Branch
	if err := s.store.PutRepo(repoName, cfg); err != nil {
		slog.Error("saving branch to registry", "repo", repoName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) gitUpdate(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("repoName")

	mu := s.lockRepo(repoName)
	defer mu.Unlock()

	cfg, err := s.store.GetRepo(repoName)
	if err != nil {
		writeError(w, http.StatusNotFound, "Repository '"+repoName+"' not found.")
		return
	}

	out, err := s.git.Pull(r.Context(), cfg.LocalPath)
	if err != nil {
		slog.Error("git pull failed", "repo", repoName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Failed to update repository."})
		return
	}

	rev, err := s.git.CurrentRevision(cfg.LocalPath)
	if err != nil {
		rev = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"currentCommit": rev,
		"pullOutput":    out,
	})
}

// newChat builds a chat record seeded with the global instructions and
// defaults, the shape every freshly created chat starts from.
func (s *Server) newChat(instructions string) *models.Chat {
	return &models.Chat{
		Status:            models.StatusActive,
		AgentInstructions: instructions,
		AttachedFiles:     []string{},
		ChatHistory:       []models.Turn{},
		AIProvider:        s.pipeline.Defaults.Provider,
		AIModel:           s.pipeline.Defaults.Model,
		PushAfterCommit:   true,
	}
}
