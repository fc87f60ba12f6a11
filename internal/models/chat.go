package models

import "strings"

// Chat status values. Stored as free-form strings; compare with IsActive.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Message is a single role/content pair in the LLM wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one entry in a chat's history.
// User turns carry the exact message list sent to the LLM so the raw
// prompt can be inspected later.
type Turn struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Timestamp    string    `json:"timestamp"`
	MessagesSent []Message `json:"messagesSent,omitempty"`
}

// Summary is an assistant-authored summary of one exchange.
type Summary struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ExtractedFile is a file body the assistant emitted inside a delimited
// block. The extractedFiles list is an append-only audit trail; later
// entries do not supersede earlier ones.
type ExtractedFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// SavedState is a named snapshot of a chat's attached-files list.
type SavedState struct {
	AttachedFiles []string `json:"attachedFiles"`
}

// Chat is one numbered conversation thread scoped to a repository.
type Chat struct {
	Status            string                `json:"status,omitempty"`
	AgentInstructions string                `json:"agentInstructions,omitempty"`
	AttachedFiles     []string              `json:"attachedFiles"`
	ChatHistory       []Turn                `json:"chatHistory"`
	SummaryHistory    []Summary             `json:"summaryHistory,omitempty"`
	ExtractedFiles    []ExtractedFile       `json:"extractedFiles,omitempty"`
	SavedStates       map[string]SavedState `json:"savedStates,omitempty"`
	AIProvider        string                `json:"aiProvider,omitempty"`
	AIModel           string                `json:"aiModel,omitempty"`
	PushAfterCommit   bool                  `json:"pushAfterCommit"`
	UploadedImages    []string              `json:"uploadedImages,omitempty"`
	LastMessagesSent  []Message             `json:"lastMessagesSent,omitempty"`
}

// IsActive reports whether the chat's status reads as active.
// Status is matched case-insensitively; an absent status means inactive.
func (c *Chat) IsActive() bool {
	return strings.EqualFold(c.Status, StatusActive)
}
