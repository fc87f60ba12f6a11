package chat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_InstructionsLeadWhenPresent(t *testing.T) {
	msgs := BuildPrompt(t.TempDir(), "act helpful", "hello", nil, 0)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "act helpful", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestBuildPrompt_NoInstructions(t *testing.T) {
	msgs := BuildPrompt(t.TempDir(), "", "hello", nil, 0)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
}

func TestBuildPrompt_AttachedFileInjection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha contents\n"), 0o644))

	msgs := BuildPrompt(dir, "", "check these", []string{"a.txt", "missing.txt"}, 0)
	require.Len(t, msgs, 1)
	content := msgs[0].Content

	assert.Contains(t, content, "===== Start of file: a.txt =====\nalpha contents\n\n===== End of file: a.txt =====")
	assert.Contains(t, content, "[File not found: missing.txt]")

	// Attachment order is preserved: a.txt block before the notice.
	assert.Less(t,
		strings.Index(content, "Start of file: a.txt"),
		strings.Index(content, "[File not found: missing.txt]"))
}

func TestBuildPrompt_UploadNotice(t *testing.T) {
	msgs := BuildPrompt(t.TempDir(), "", "see images", nil, 2)
	assert.Contains(t, msgs[len(msgs)-1].Content, "[2 image attachment(s) uploaded]")
}
