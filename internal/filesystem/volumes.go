package filesystem

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const unknownVolume = "unknown"

// Volumes maps file paths to volume names for metric labeling using
// longest-prefix matching on absolute paths. Entries can change at runtime,
// so the board root can follow the workspace.
type Volumes struct {
	mu sync.RWMutex
	// sorted by path length descending
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash
	name string
}

// NewVolumes creates an empty volume table.
func NewVolumes() *Volumes {
	return &Volumes{}
}

// Set points name at path, replacing any earlier path for name. An empty path
// removes the volume.
func (v *Volumes) Set(name, path string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	mounts := v.mounts[:0:0]
	for _, m := range v.mounts {
		if m.name != name {
			mounts = append(mounts, m)
		}
	}

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.SliceStable(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})
	v.mounts = mounts
}

// Resolve returns the volume name for path, or "unknown".
func (v *Volumes) Resolve(path string) string {
	if v == nil {
		return unknownVolume
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return unknownVolume
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, m := range v.mounts {
		if strings.HasPrefix(absPath+"/", m.path) {
			return m.name
		}
	}
	return unknownVolume
}

var defaultVolumes = NewVolumes()

// SetVolume points a package-level volume at path. Pass an empty path to
// forget it.
func SetVolume(name, path string) {
	defaultVolumes.Set(name, path)
}

// VolumeOf reports the package-level volume name for path.
func VolumeOf(path string) string {
	return defaultVolumes.Resolve(path)
}
