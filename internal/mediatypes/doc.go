// Package mediatypes classifies files as images or videos.
//
// It is a dependency-free leaf that every other package may import. The
// classifier is the single gate between "a file exists" and "an asset
// exists": anything it maps to KindNone never reaches the workspace.
//
// # Classification
//
// A declared content type (from an upload or a paste) wins when it starts
// with image/ or video/. Otherwise the lower-cased extension is matched
// against two fixed allow-lists:
//
//	video: mp4 webm ogg mov mkv
//	image: jpg jpeg png gif webp avif svg
//
// Example:
//
//	kind := mediatypes.Classify("IMG_0042.JPG", "")   // KindImage
//	kind = mediatypes.Classify("clip.bin", "video/mp4") // KindVideo
//	kind = mediatypes.Classify("notes.txt", "")         // KindNone
//
// # MIME Types
//
// MimeType returns the content type used when serving a classified file.
package mediatypes
