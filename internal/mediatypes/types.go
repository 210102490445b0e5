package mediatypes

import "strings"

// Kind is the media classification of a file.
type Kind string

const (
	// KindNone marks a file that is neither an image nor a video.
	KindNone Kind = ""
	// KindImage represents an image file.
	KindImage Kind = "image"
	// KindVideo represents a video file.
	KindVideo Kind = "video"
)

// VideoExtensions lists the video extensions accepted without a declared type.
var VideoExtensions = map[string]bool{
	"mp4":  true,
	"webm": true,
	"ogg":  true,
	"mov":  true,
	"mkv":  true,
}

// ImageExtensions lists the image extensions accepted without a declared type.
var ImageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"avif": true,
	"svg":  true,
}

// MimeTypes maps extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"avif": "image/avif",
	"svg":  "image/svg+xml",

	// Videos
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"ogg":  "video/ogg",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
}

// Extension returns the lower-cased text after the last dot of name,
// or "" when name has no dot.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Classify maps a file name and an optional declared content type to a Kind.
// A recognized declared type takes precedence over the extension.
func Classify(name, declaredType string) Kind {
	declared := strings.ToLower(strings.TrimSpace(declaredType))
	switch {
	case strings.HasPrefix(declared, "image/"):
		return KindImage
	case strings.HasPrefix(declared, "video/"):
		return KindVideo
	}

	ext := Extension(name)
	if VideoExtensions[ext] {
		return KindVideo
	}
	if ImageExtensions[ext] {
		return KindImage
	}
	return KindNone
}

// IsMedia reports whether Classify would accept the file.
func IsMedia(name, declaredType string) bool {
	return Classify(name, declaredType) != KindNone
}

// MimeType returns the MIME type for a file name.
// Returns "application/octet-stream" if the extension is not recognized.
func MimeType(name string) string {
	if mime, ok := MimeTypes[Extension(name)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// DefaultExtension is the extension given to an imported file whose
// source name carries none.
func DefaultExtension(kind Kind) string {
	if kind == KindVideo {
		return "mp4"
	}
	return "png"
}
