package loader

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.wisp.dev/wisp/lib/testutils"
)

func TestJoinPath(t *testing.T) {
	testdata := map[string]struct{ root, name, out string }{
		"NoSlash":       {"/libs", "mod.js", "/libs/mod.js"},
		"TrailingSlash": {"/libs/", "mod.js", "/libs/mod.js"},
		"ManySlashes":   {"/libs///", "mod.js", "/libs/mod.js"},
		"EmptyRoot":     {"", "mod.js", "mod.js"},
		"AbsoluteName":  {"/libs", "/opt/mod.js", "/opt/mod.js"},
		"DottedName":    {"/libs", "./mod.js", "/libs/./mod.js"},
	}
	for name, data := range testdata {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, data.out, joinPath(data.root, data.name))
		})
	}
}

func TestResolve(t *testing.T) {
	logger := testutils.NewLogger(t)

	newFs := func(t *testing.T, files ...string) afero.Fs {
		fs := afero.NewMemMapFs()
		for _, f := range files {
			require.NoError(t, afero.WriteFile(fs, f, []byte("// "+f), 0o644))
		}
		return fs
	}

	t.Run("Blank", func(t *testing.T) {
		r := NewResolver(logger, newFs(t), nil)
		_, err := r.Resolve("")
		assert.EqualError(t, err, "local module path required")
	})

	t.Run("Absolute", func(t *testing.T) {
		// Absolute specifiers resolve without touching the filesystem, so
		// even a path that exists nowhere comes back verbatim.
		r := NewResolver(logger, newFs(t), []string{"/libs"})
		testdata := map[string]string{
			"/opt/mod.js":       "file:///opt/mod.js",
			"/opt/mod":          "file:///opt/mod",
			"/opt/../up/mod.js": "file:///opt/../up/mod.js",
		}
		for specifier, location := range testdata {
			t.Run(specifier, func(t *testing.T) {
				loc, err := r.Resolve(specifier)
				require.NoError(t, err)
				assert.Equal(t, location, loc)
			})
		}
	})

	t.Run("SearchOrder", func(t *testing.T) {
		fs := newFs(t, "/first/mod.js", "/second/mod.js")
		r := NewResolver(logger, fs, []string{"/first", "/second"})
		loc, err := r.Resolve("mod")
		require.NoError(t, err)
		assert.Equal(t, "file:///first/mod.js", loc)
	})

	t.Run("LaterRoot", func(t *testing.T) {
		fs := newFs(t, "/second/mod.js")
		r := NewResolver(logger, fs, []string{"/first", "/second"})
		loc, err := r.Resolve("mod")
		require.NoError(t, err)
		assert.Equal(t, "file:///second/mod.js", loc)
	})

	t.Run("PlainBeforeSuffixed", func(t *testing.T) {
		// A root holding both "mod" and "mod.js" always answers with the
		// plain spelling; the suffix probe never runs if the first one hits.
		fs := newFs(t, "/libs/mod", "/libs/mod.js")
		r := NewResolver(logger, fs, []string{"/libs"})
		loc, err := r.Resolve("mod")
		require.NoError(t, err)
		assert.Equal(t, "file:///libs/mod", loc)
	})

	t.Run("SuffixAppended", func(t *testing.T) {
		fs := newFs(t, "/libs/mod.js")
		r := NewResolver(logger, fs, []string{"/libs"})
		for _, specifier := range []string{"mod", "mod.js", "./mod", "./mod.js"} {
			t.Run(specifier, func(t *testing.T) {
				loc, err := r.Resolve(specifier)
				require.NoError(t, err)
				assert.Equal(t, "file:///libs/mod.js", loc)
			})
		}
	})

	t.Run("NoDoubleSuffix", func(t *testing.T) {
		fs := newFs(t, "/libs/mod.js.js")
		r := NewResolver(logger, fs, []string{"/libs"})
		_, err := r.Resolve("mod.js")
		var nfe NotFoundError
		assert.ErrorAs(t, err, &nfe)
	})

	t.Run("DirectoryDoesNotShadow", func(t *testing.T) {
		fs := newFs(t, "/libs/mod/inner.js", "/libs/mod.js")
		r := NewResolver(logger, fs, []string{"/libs"})
		loc, err := r.Resolve("mod")
		require.NoError(t, err)
		assert.Equal(t, "file:///libs/mod.js", loc)
	})

	t.Run("EquivalentSpellings", func(t *testing.T) {
		fs := newFs(t, "/libs/util.js")
		r := NewResolver(logger, fs, []string{"/libs"})
		expected := "file:///libs/util.js"
		for _, specifier := range []string{"util", "util.js", "./util", "./util.js"} {
			loc, err := r.Resolve(specifier)
			require.NoError(t, err)
			assert.Equalf(t, expected, loc, "specifier %q", specifier)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		r := NewResolver(logger, newFs(t), []string{"/first", "/second"})
		_, err := r.Resolve("missing")
		var nfe NotFoundError
		require.ErrorAs(t, err, &nfe)
		assert.Equal(t, "missing", nfe.Specifier)
		assert.EqualError(t, err, `module "missing" couldn't be found on the search path`)
	})

	t.Run("EmptySearchPath", func(t *testing.T) {
		r := NewResolver(logger, newFs(t, "/mod.js"), nil)
		_, err := r.Resolve("mod")
		var nfe NotFoundError
		assert.ErrorAs(t, err, &nfe)
	})
}

func TestLoad(t *testing.T) {
	logger := testutils.NewLogger(t)

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/path/to", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/path/to/mod.js", []byte("hi"), 0o644))
	filesystems := map[string]afero.Fs{"file": fs}

	t.Run("Existing", func(t *testing.T) {
		src, err := Load(logger, filesystems, "file:///path/to/mod.js", "mod")
		if assert.NoError(t, err) {
			assert.Equal(t, "file:///path/to/mod.js", src.Location)
			assert.Equal(t, "hi", string(src.Data))
		}
	})

	t.Run("Nonexistent", func(t *testing.T) {
		_, err := Load(logger, filesystems, "file:///nonexistent.js", "nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprintf(`The module "%s" couldn't be read`, "nonexistent"))
		assert.Contains(t, err.Error(), "/nonexistent.js")
	})
}

func TestCreateFilesystems(t *testing.T) {
	osfs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(osfs, "/mod.js", []byte("top"), 0o644))

	filesystems := CreateFilesystems(osfs)
	require.Contains(t, filesystems, "file")

	data, err := afero.ReadFile(filesystems["file"], "/mod.js")
	require.NoError(t, err)
	assert.Equal(t, "top", string(data))

	// A second read is served from the cache layer even if the backing file
	// has changed in the meantime.
	require.NoError(t, afero.WriteFile(osfs, "/mod.js", []byte("changed"), 0o644))
	data, err = afero.ReadFile(filesystems["file"], "/mod.js")
	require.NoError(t, err)
	assert.Equal(t, "top", string(data))
}
