package tui

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/chatflow-ai/chatflow/internal/chat"
)

// LoadBlob reads a file from disk into a blob for staging. The mime type
// comes from the extension, with content sniffing as fallback. The core
// does not re-validate types; this is the UI-level supplier of blobs.
func LoadBlob(path string) (chat.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chat.Blob{}, err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return chat.Blob{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Data:     data,
	}, nil
}
