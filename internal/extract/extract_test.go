package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractPlainText(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "  Photosynthesis converts light into chemical energy.\n")

	result, err := Extract(path, "txt")

	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis converts light into chemical energy.", result.Text)
	assert.Equal(t, 1, result.PageCount)
}

func TestExtractEmptyTextFails(t *testing.T) {
	path := writeTempFile(t, "empty.txt", "   \n\t ")

	_, err := Extract(path, "txt")
	assert.Error(t, err)
}

func TestExtractHTMLStripsChrome(t *testing.T) {
	html := `<html><head><style>body { color: red }</style></head><body>
		<nav>Menu things</nav>
		<header>Site header</header>
		<p>Cells   divide through
		mitosis.</p>
		<script>alert("hi")</script>
		<footer>Copyright</footer>
	</body></html>`
	path := writeTempFile(t, "page.html", html)

	result, err := Extract(path, "html")

	require.NoError(t, err)
	assert.Equal(t, "Cells divide through mitosis.", result.Text)
	assert.Equal(t, 1, result.PageCount)
	assert.NotContains(t, result.Text, "Menu")
	assert.NotContains(t, result.Text, "alert")
}

func TestExtractHTMLNoContentFails(t *testing.T) {
	path := writeTempFile(t, "bare.html", `<html><body><script>x()</script></body></html>`)

	_, err := Extract(path, "html")
	assert.Error(t, err)
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := Extract("/tmp/whatever.docx", "docx")

	var unsupported *ErrUnsupportedType
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "docx", unsupported.FileType)
}

func TestExtractTypeCaseInsensitive(t *testing.T) {
	path := writeTempFile(t, "notes.TXT", "Ohm's law relates voltage and current.")

	result, err := Extract(path, "TXT")

	require.NoError(t, err)
	assert.NotEmpty(t, result.Text)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.txt"), "txt")
	assert.Error(t, err)
}
