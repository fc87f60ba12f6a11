package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFiles_SingleBlock(t *testing.T) {
	text := "Here you go:\n" +
		"===== Start of file: main.go =====\n" +
		"package main\n" +
		"\n" +
		"func main() {}\n" +
		"===== End of file: main.go =====\n" +
		"Done."

	files := ExtractFiles(text)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Filename)
	assert.Equal(t, "package main\n\nfunc main() {}", files[0].Content)
}

func TestExtractFiles_MultipleBlocks(t *testing.T) {
	text := "===== Start of file: a.txt =====\n" +
		"alpha\n" +
		"===== End of file: a.txt =====\n" +
		"between\n" +
		"===== Start of file: b.txt =====\n" +
		"beta\n" +
		"===== End of file: b.txt =====\n"

	files := ExtractFiles(text)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Filename)
	assert.Equal(t, "alpha", files[0].Content)
	assert.Equal(t, "b.txt", files[1].Filename)
	assert.Equal(t, "beta", files[1].Content)
}

func TestExtractFiles_ContentNotTrimmed(t *testing.T) {
	text := "===== Start of file: s.txt =====\n" +
		"  indented\n" +
		"\n" +
		"trailing  \n" +
		"===== End of file: s.txt =====\n"

	files := ExtractFiles(text)
	require.Len(t, files, 1)
	assert.Equal(t, "  indented\n\ntrailing  ", files[0].Content)
}

func TestExtractFiles_MismatchedEndIsNoMatch(t *testing.T) {
	// Start marker for x with no matching end for x: the unrelated end
	// marker must not close the block.
	text := "===== Start of file: x.txt =====\n" +
		"orphan body\n" +
		"===== End of file: other.txt =====\n"

	assert.Empty(t, ExtractFiles(text))
}

func TestExtractFiles_OrphanStart(t *testing.T) {
	text := "===== Start of file: x.txt =====\nnever closed"
	assert.Empty(t, ExtractFiles(text))
}

func TestExtractFiles_NoBlocks(t *testing.T) {
	assert.Empty(t, ExtractFiles("just a chatty reply with no files"))
}

func TestExtractFiles_MarkerLineInsideContent(t *testing.T) {
	// An embedded start-looking line is content while the block is open.
	text := "===== Start of file: doc.md =====\n" +
		"===== Start of file: nested.md =====\n" +
		"===== End of file: doc.md =====\n"

	files := ExtractFiles(text)
	require.Len(t, files, 1)
	assert.Equal(t, "doc.md", files[0].Filename)
	assert.Equal(t, "===== Start of file: nested.md =====", files[0].Content)
}

func TestExtractFiles_CRLF(t *testing.T) {
	text := "===== Start of file: w.txt =====\r\nwindows\r\n===== End of file: w.txt =====\r\n"
	files := ExtractFiles(text)
	require.Len(t, files, 1)
	assert.Equal(t, "w.txt", files[0].Filename)
}

func TestExtractCommitSummary_Present(t *testing.T) {
	text := "A. Commit Summary\n" +
		"\n" +
		"Add login handler and tests\n" +
		"\n" +
		"B. Files\n" +
		"===== Start of file: a.go =====\n" +
		"===== End of file: a.go =====\n"

	summary, ok := ExtractCommitSummary(text)
	require.True(t, ok)
	assert.Equal(t, "Add login handler and tests", summary)
}

func TestExtractCommitSummary_MarkdownHeaders(t *testing.T) {
	text := "## A. Commit Summary\nFix parser edge case\n### B. Files\n"

	summary, ok := ExtractCommitSummary(text)
	require.True(t, ok)
	assert.Equal(t, "Fix parser edge case", summary)
}

func TestExtractCommitSummary_MultiLine(t *testing.T) {
	text := "A. Commit Summary\nline one\nline two\nB. Files\n"

	summary, ok := ExtractCommitSummary(text)
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", summary)
}

func TestExtractCommitSummary_Absent(t *testing.T) {
	_, ok := ExtractCommitSummary("no sections here at all")
	assert.False(t, ok)
}

func TestExtractCommitSummary_NoFilesSection(t *testing.T) {
	// Header present but no Files section: capture runs to end of text.
	summary, ok := ExtractCommitSummary("Commit Summary\njust the message")
	require.True(t, ok)
	assert.Equal(t, "just the message", summary)
}

func TestExtractCommitSummary_Deterministic(t *testing.T) {
	text := "A. Commit Summary\nstable output\nB. Files\n"
	first, ok1 := ExtractCommitSummary(text)
	second, ok2 := ExtractCommitSummary(text)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}
