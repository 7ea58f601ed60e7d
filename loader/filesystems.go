package loader

import (
	"github.com/spf13/afero"
)

// CreateFilesystems creates the scheme-keyed filesystem map the loader and
// resolver operate on.
func CreateFilesystems(osfs afero.Fs) map[string]afero.Fs {
	// We want to minimize disk access at runtime, so we set up a memory mapped
	// cache that's written every time something is read from the real
	// filesystem. Successive reads of the same artifact are then served from
	// memory.
	return map[string]afero.Fs{
		"file": afero.NewCacheOnReadFs(osfs, afero.NewMemMapFs(), 0),
	}
}
