package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"repochat/internal/chat"
	"repochat/internal/models"
	"repochat/internal/store"
)

// chatRef resolves the repo name and chat number from the request path.
// A non-numeric chat number is treated as unknown.
func chatRef(r *http.Request) (string, int, error) {
	repoName := r.PathValue("repoName")
	number, err := strconv.Atoi(r.PathValue("chatNumber"))
	if err != nil {
		return repoName, 0, fmt.Errorf("chat %q: %w", r.PathValue("chatNumber"), store.ErrNotFound)
	}
	return repoName, number, nil
}

// chatMessage is the chat-turn pipeline entry point.
func (s *Server) chatMessage(w http.ResponseWriter, r *http.Request) {
	repoName, number, err := chatRef(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "Chat not found.")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	message := r.FormValue("message")
	if message == "" {
		message = r.FormValue("chatInput")
	}
	if message == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	in := chat.TurnInput{Message: message}
	if raw, ok := r.Form["attachedFiles"]; ok && len(raw) > 0 {
		var files []string
		if err := json.Unmarshal([]byte(raw[0]), &files); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid attachedFiles list.")
			return
		}
		in.AttachedFiles = files
		in.ReplaceAttached = true
	}

	uploaded, err := s.storeUploads(r, repoName, number)
	if err != nil {
		slog.Error("storing uploads", "repo", repoName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded files.")
		return
	}
	in.UploadedImages = uploaded

	mu := s.lockRepo(repoName)
	defer mu.Unlock()

	result, err := s.pipeline.Run(r.Context(), repoName, number, in)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found.")
			return
		}
		slog.Error("chat turn failed", "repo", repoName, "chat", number, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process chat message.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"assistantReply": result.Reply,
		"updatedChat":    result.Chat,
	})
}

// mutateChat runs fn inside a locked load-modify-save cycle for one
// chat, translating missing repos/chats to 404s and redirecting back to
// the chat view on success.
func (s *Server) mutateChat(w http.ResponseWriter, r *http.Request, fn func(c *models.Chat) error) {
	repoName, number, err := chatRef(r)
	if err != nil {
		http.Error(w, "Chat not found.", http.StatusNotFound)
		return
	}

	mu := s.lockRepo(repoName)
	defer mu.Unlock()

	chats, err := s.store.LoadChats(repoName)
	if err != nil {
		slog.Error("loading chats", "repo", repoName, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	c, ok := chats[strconv.Itoa(number)]
	if !ok {
		http.Error(w, "Chat not found.", http.StatusNotFound)
		return
	}

	if err := fn(c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.SaveChats(repoName, chats); err != nil {
		slog.Error("saving chats", "repo", repoName, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/%s/chat/%d", repoName, number), http.StatusSeeOther)
}

func (s *Server) saveAgentInstructions(w http.ResponseWriter, r *http.Request) {
	s.mutateChat(w, r, func(c *models.Chat) error {
		c.AgentInstructions = r.FormValue("agentInstructions")
		return nil
	})
}

func (s *Server) saveState(w http.ResponseWriter, r *http.Request) {
	s.mutateChat(w, r, func(c *models.Chat) error {
		name := r.FormValue("stateName")
		if name == "" {
			return errors.New("No state name provided")
		}
		if c.SavedStates == nil {
			c.SavedStates = map[string]models.SavedState{}
		}
		snapshot := append([]string(nil), c.AttachedFiles...)
		c.SavedStates[name] = models.SavedState{AttachedFiles: snapshot}
		return nil
	})
}

func (s *Server) loadState(w http.ResponseWriter, r *http.Request) {
	s.mutateChat(w, r, func(c *models.Chat) error {
		name := r.FormValue("stateName")
		state, ok := c.SavedStates[name]
		if !ok {
			return fmt.Errorf("Unknown state: %s", name)
		}
		c.AttachedFiles = append([]string(nil), state.AttachedFiles...)
		return nil
	})
}

func (s *Server) togglePushAfterCommit(w http.ResponseWriter, r *http.Request) {
	s.mutateChat(w, r, func(c *models.Chat) error {
		c.PushAfterCommit = !c.PushAfterCommit
		return nil
	})
}

func (s *Server) setChatModel(w http.ResponseWriter, r *http.Request) {
	repoName := r.FormValue("gitRepoNameCLI")
	chatNumber := r.FormValue("chatNumber")
	if repoName == "" || chatNumber == "" {
		http.Error(w, "Missing repository or chat number.", http.StatusBadRequest)
		return
	}
	number, err := strconv.Atoi(chatNumber)
	if err != nil {
		http.Error(w, "Chat not found.", http.StatusNotFound)
		return
	}

	mu := s.lockRepo(repoName)
	defer mu.Unlock()

	chats, err := s.store.LoadChats(repoName)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	c, ok := chats[chatNumber]
	if !ok {
		http.Error(w, "Chat not found.", http.StatusNotFound)
		return
	}

	if model := r.FormValue("aiModel"); model != "" {
		c.AIModel = model
	}
	if provider := r.FormValue("aiProvider"); provider != "" {
		c.AIProvider = provider
	}
	if err := s.store.SaveChats(repoName, chats); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/%s/chat/%d", repoName, number), http.StatusSeeOther)
}

// userMessagesSent returns the raw prompt recorded for a history index,
// or nil if the index is out of range or the turn is not a user turn.
func userMessagesSent(c *models.Chat, index int) []models.Message {
	if index < 0 || index >= len(c.ChatHistory) {
		return nil
	}
	turn := c.ChatHistory[index]
	if turn.Role != "user" || len(turn.MessagesSent) == 0 {
		return nil
	}
	return turn.MessagesSent
}

func (s *Server) rawMessages(w http.ResponseWriter, r *http.Request) {
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
	index, err := strconv.Atoi(r.PathValue("messageIndex"))
	if err != nil {
		http.Error(w, "Message not found.", http.StatusNotFound)
		return
	}
	msgs := userMessagesSent(c, index)
	if msgs == nil {
		http.Error(w, "No raw messages available for this message.", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(msgs)
}

func (s *Server) jsonViewer(w http.ResponseWriter, r *http.Request) {
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
	index, err := strconv.Atoi(r.PathValue("messageIndex"))
	if err != nil {
		http.Error(w, "Message not found.", http.StatusNotFound)
		return
	}
	msgs := userMessagesSent(c, index)
	if msgs == nil {
		http.Error(w, "No raw messages available for this message.", http.StatusNotFound)
		return
	}
	s.renderPage(w, "json_viewer.html", map[string]any{"Messages": msgs})
}

// storeUploads writes multipart image attachments to the uploads
// directory and returns their stored relative paths.
func (s *Server) storeUploads(r *http.Request, repoName string, chatNumber int) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["imageFiles[]"]
	if len(files) == 0 {
		return nil, nil
	}

	dir := filepath.Join(s.uploadsDir, repoName, strconv.Itoa(chatNumber))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var stored []string
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return nil, err
		}
		name := newULID() + filepath.Ext(fh.Filename)
		dst, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			src.Close()
			return nil, err
		}
		if _, err := dst.ReadFrom(src); err != nil {
			src.Close()
			dst.Close()
			return nil, err
		}
		src.Close()
		dst.Close()
		stored = append(stored, filepath.ToSlash(filepath.Join(repoName, strconv.Itoa(chatNumber), name)))
	}
	return stored, nil
}
