package store

import (
	"errors"
	"strconv"

	"repochat/internal/models"
)

// ErrNotFound is returned when a repository or chat does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for repochat.
//
// Every operation is a whole-file read/parse or whole-file
// write/serialize. There are no partial updates and no locking here;
// callers own the read-modify-write cycle and serialize it themselves
// if they need to.
type Store interface {
	// Repository registry
	GetRepo(name string) (*models.RepoConfig, error)
	ListRepos() (map[string]*models.RepoConfig, error)
	PutRepo(name string, cfg *models.RepoConfig) error

	// Per-repository chat maps, keyed by decimal chat number
	LoadChats(repoName string) (map[string]*models.Chat, error)
	SaveChats(repoName string, chats map[string]*models.Chat) error
	GetChat(repoName string, number int) (*models.Chat, error)

	// Global default agent instructions
	GlobalInstructions() (string, error)
	SaveGlobalInstructions(text string) error
}

// NextChatNumber returns max(existing)+1 over the parsable keys of a
// chat map. Numbers are never reused, so the key set may be sparse.
func NextChatNumber(chats map[string]*models.Chat) int {
	max := 0
	for key := range chats {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}
