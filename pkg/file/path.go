package file

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"os"
	"path"
	"strings"
)

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeFilename derives a filesystem-safe filename from a URL.
// Prefers the last path segment; falls back to a hash-based name when the
// URL has no usable tail (e.g. ends in "/" or is query-only).
func SafeFilename(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if base != "" && base != "." && base != "/" && !strings.ContainsAny(base, "\\?%*:|\"<>") {
			return base
		}
	}
	sum := md5.Sum([]byte(rawURL))
	return "file_" + hex.EncodeToString(sum[:])[:12]
}

// SizeMB returns the file size in megabytes, or 0 when the file is missing.
func SizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}
