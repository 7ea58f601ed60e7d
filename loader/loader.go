// Package loader resolves module specifiers against an ordered search path
// and reads the source artifacts the resolved locations denote.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// FileScheme is the location scheme prefixing every resolved local path.
	FileScheme = "file://"

	// SourceSuffix is the extension probed for when a specifier doesn't
	// already carry it.
	SourceSuffix = ".js"
)

var fileCouldntBeLoadedMsg = `The module "%s" couldn't be read from local disk (resolved to "%s"). ` +
	`Make sure that you've specified the right path to the file, or that every search ` +
	`root passed with --include-path actually contains it.`

// SourceData wraps a loaded source artifact; data and resolved location.
type SourceData struct {
	Data     []byte
	Location string
}

// NotFoundError is returned when a specifier matches no artifact across the
// whole search path. It carries the specifier as the caller wrote it, not
// any of the probed candidates.
type NotFoundError struct {
	Specifier string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("module %q couldn't be found on the search path", e.Specifier)
}

// Resolver maps module specifiers to the location of one concrete artifact
// by probing an ordered list of search roots. The search path is fixed at
// construction; resolution never consults the caller's own location.
type Resolver struct {
	fs         afero.Fs
	searchPath []string
	logger     logrus.FieldLogger
}

// NewResolver returns a Resolver probing the given roots, in order, on fs.
func NewResolver(logger logrus.FieldLogger, fs afero.Fs, searchPath []string) *Resolver {
	sp := make([]string, len(searchPath))
	copy(sp, searchPath)
	return &Resolver{fs: fs, searchPath: sp, logger: logger}
}

// Resolve turns a module specifier into a resolved location. Absolute
// specifiers are trusted as-is and only get the scheme prefix; anything
// else is probed root by root, at each root the plain candidate before the
// suffixed one, and the first existing artifact wins. Candidates are
// cleaned before probing so that specifier spellings like "util" and
// "./util.js" land on the same location.
func (r *Resolver) Resolve(specifier string) (string, error) {
	if specifier == "" {
		return "", errors.New("local module path required")
	}
	if strings.HasPrefix(specifier, "/") {
		return FileScheme + specifier, nil
	}

	for _, root := range r.searchPath {
		candidate := path.Clean(joinPath(root, specifier))
		probes := []string{candidate}
		if !strings.HasSuffix(candidate, SourceSuffix) {
			probes = append(probes, candidate+SourceSuffix)
		}
		for _, p := range probes {
			r.logger.WithFields(logrus.Fields{
				"specifier": specifier,
				"candidate": p,
			}).Debug("Probing...")
			switch ok, err := isFile(r.fs, p); {
			case err != nil:
				return "", err
			case ok:
				return FileScheme + p, nil
			}
		}
	}

	return "", NotFoundError{Specifier: specifier}
}

// isFile reports whether p names a regular file. Directories don't count;
// a directory next to an equally named source file must not shadow it.
func isFile(fs afero.Fs, p string) (bool, error) {
	info, err := fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// joinPath joins a search root and a specifier with exactly one separator.
// Absolute specifiers win over the root; the empty root leaves the
// specifier untouched.
func joinPath(root, name string) string {
	if strings.HasPrefix(name, "/") || root == "" {
		return name
	}
	return strings.TrimRight(root, "/") + "/" + name
}

// Load reads the artifact a resolved location denotes from the filesystems
// map, which holds an afero.Fs per location scheme. The specifier as
// originally written is carried along purely for diagnostics.
func Load(
	logger logrus.FieldLogger, filesystems map[string]afero.Fs, location, originalSpecifier string,
) (*SourceData, error) {
	logger.WithFields(
		logrus.Fields{
			"location":          location,
			"originalSpecifier": originalSpecifier,
		}).Debug("Loading...")

	pathOnFs := strings.TrimPrefix(location, FileScheme)
	data, err := afero.ReadFile(filesystems["file"], pathOnFs)
	if err == nil {
		return &SourceData{Location: location, Data: data}, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return nil, fmt.Errorf(fileCouldntBeLoadedMsg, originalSpecifier, pathOnFs)
}
