package helpers

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// invalidFolderChars are characters that are path separators or
// reserved on common filesystems.
const invalidFolderChars = `<>:"/\|?*`

// SanitizeFolderName makes a post title usable as a single directory
// name: reserved characters are dropped, control characters removed,
// whitespace collapsed, and trailing dots/spaces trimmed (Windows
// rejects them). Brackets and parentheses are kept so the
// "[creator] title (id)" layout stays readable.
func SanitizeFolderName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidFolderChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	cleaned = strings.TrimRight(cleaned, ". ")
	if cleaned == "" {
		cleaned = "untitled"
	}
	return cleaned
}

// CheckAndMakeDir ensures the directory exists, creating it and any
// parents if needed. Creating an already-existing directory is not an
// error. Returns false if creation failed.
func CheckAndMakeDir(path string) bool {
	if err := os.MkdirAll(path, 0750); err != nil {
		log.WithError(err).Errorf("Failed to create directory %s", path)
		return false
	}
	return true
}

// BytesToSize formats a byte count in binary units.
func BytesToSize(bytes uint64) string {
	if bytes == 0 {
		return "0B"
	}
	sizes := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	return fmt.Sprintf("%.2f%s", float64(bytes)/math.Pow(1024, float64(i)), sizes[i])
}

// CounterWriter wraps a writer and counts the bytes passed through.
type CounterWriter struct {
	Writer io.Writer
	Total  int64
}

func (cw *CounterWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.Total += int64(n)
	return n, err
}
