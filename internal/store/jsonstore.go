package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"repochat/internal/models"
)

// JSONStore persists the registry, per-repository chat maps, and global
// instructions as flat files under a data directory:
//
//	<dir>/config/repo_config.json
//	<dir>/config/global_agent_instructions.txt
//	<dir>/repos/<repoName>.json
type JSONStore struct {
	dir string
}

// NewJSONStore creates a JSONStore rooted at dir, creating the
// directory layout if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	for _, sub := range []string{"config", "repos", "uploads"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &JSONStore{dir: dir}, nil
}

// Dir returns the data directory root.
func (s *JSONStore) Dir() string {
	return s.dir
}

// UploadsDir returns the directory where uploaded attachments are stored.
func (s *JSONStore) UploadsDir() string {
	return filepath.Join(s.dir, "uploads")
}

func (s *JSONStore) registryPath() string {
	return filepath.Join(s.dir, "config", "repo_config.json")
}

func (s *JSONStore) chatsPath(repoName string) string {
	return filepath.Join(s.dir, "repos", repoName+".json")
}

func (s *JSONStore) instructionsPath() string {
	return filepath.Join(s.dir, "config", "global_agent_instructions.txt")
}

// readJSONFile unmarshals path into v. A missing file leaves v untouched
// and materializes the file with the zero collection, so first reads
// establish the file on disk.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return writeJSONFile(path, v)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *JSONStore) ListRepos() (map[string]*models.RepoConfig, error) {
	registry := map[string]*models.RepoConfig{}
	if err := readJSONFile(s.registryPath(), &registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func (s *JSONStore) GetRepo(name string) (*models.RepoConfig, error) {
	registry, err := s.ListRepos()
	if err != nil {
		return nil, err
	}
	cfg, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("repository %q: %w", name, ErrNotFound)
	}
	return cfg, nil
}

func (s *JSONStore) PutRepo(name string, cfg *models.RepoConfig) error {
	registry, err := s.ListRepos()
	if err != nil {
		return err
	}
	registry[name] = cfg
	return writeJSONFile(s.registryPath(), registry)
}

func (s *JSONStore) LoadChats(repoName string) (map[string]*models.Chat, error) {
	chats := map[string]*models.Chat{}
	if err := readJSONFile(s.chatsPath(repoName), &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *JSONStore) SaveChats(repoName string, chats map[string]*models.Chat) error {
	return writeJSONFile(s.chatsPath(repoName), chats)
}

func (s *JSONStore) GetChat(repoName string, number int) (*models.Chat, error) {
	chats, err := s.LoadChats(repoName)
	if err != nil {
		return nil, err
	}
	chat, ok := chats[strconv.Itoa(number)]
	if !ok {
		return nil, fmt.Errorf("chat %d in %q: %w", number, repoName, ErrNotFound)
	}
	return chat, nil
}

func (s *JSONStore) GlobalInstructions() (string, error) {
	data, err := os.ReadFile(s.instructionsPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read global instructions: %w", err)
	}
	return string(data), nil
}

func (s *JSONStore) SaveGlobalInstructions(text string) error {
	if err := os.WriteFile(s.instructionsPath(), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write global instructions: %w", err)
	}
	return nil
}
