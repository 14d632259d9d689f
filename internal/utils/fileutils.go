package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo is the subset of file metadata the artwork resolver needs
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// FileExists reports whether path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// StatFile returns size and modification time for path
func StatFile(path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &FileInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// FileTag builds a short deterministic fingerprint of (path, mtime).
// The tag changes whenever the file is replaced or touched, which makes it
// safe to use as an HTTP validator with aggressive client caching.
func FileTag(path string, modTime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", path, modTime.UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}

// MimeTypeForFile guesses an image MIME type from the file extension
func MimeTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// ExtensionForMimeType returns the file extension used when storing an
// image of the given MIME type
func ExtensionForMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
