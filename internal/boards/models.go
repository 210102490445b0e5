package boards

import (
	"media-boards/internal/blobstore"
	"media-boards/internal/fsapi"
	"media-boards/internal/mediatypes"
)

// Asset is one classified media file. URL is empty until the asset has been
// materialized.
type Asset struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Kind   mediatypes.Kind `json:"type"`
	URL    string          `json:"url"`
	Origin Origin          `json:"-"`
}

// Origin says where an asset's bytes come from. The only implementations are
// DirectoryBacked and MemoryBacked.
type Origin interface {
	origin()
}

// DirectoryBacked assets live in the connected root.
type DirectoryBacked struct {
	Handle fsapi.FileHandle
}

// MemoryBacked assets were handed over in fallback mode and exist only in memory.
type MemoryBacked struct {
	Blob blobstore.Source
}

func (DirectoryBacked) origin() {}
func (MemoryBacked) origin()    {}

// Folder is an immediate subdirectory of the root, shown as a board.
type Folder struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Count  int             `json:"count"`
	Handle fsapi.DirHandle `json:"-"`
}
