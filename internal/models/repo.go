package models

// RepoConfig is a registry entry for a locally cloned repository.
// The registry is a map from repository name to RepoConfig, persisted
// whole-file as JSON.
type RepoConfig struct {
	LocalPath string `json:"localPath"`
	RepoURL   string `json:"gitRepoURL"`
	Branch    string `json:"branch"`
	Account   string `json:"account,omitempty"`
}
