// Package media renders grid previews for image assets.
//
// Previews are JPEG thumbnails fitted into ThumbnailSize x ThumbnailSize and
// kept in a bounded in-memory cache keyed by asset id and reference, so a
// rescan that issues new references never serves a stale preview.
//
// Vector and AVIF images, and all videos, have no preview and return
// ErrUnsupported.
package media
