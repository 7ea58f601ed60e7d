// Package js is the scripting layer of wisp: it owns the shared execution
// context scripts and their modules run in, and the machinery for getting
// host capabilities and module exports into it.
package js

import (
	"context"
	"sort"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"go.wisp.dev/wisp/js/common"
	"go.wisp.dev/wisp/lib"
	"go.wisp.dev/wisp/loader"
)

// A ModuleDescriptor names an entry script: a caller-chosen id used purely
// for diagnostics, and the location to load the source from.
type ModuleDescriptor struct {
	ID  string
	URI string
}

// A Scope is one shared browser-like execution context: the runtime whose
// global object all scripts see, the registry of modules loaded into it so
// far, and the resolver bound to its search path. The fixed globals
// (console, require and whatever the host supplied) are installed once at
// construction, before any user code runs.
//
// A Scope and its runtime are not goroutine-safe; everything touching one
// must happen on a single goroutine. Independent Scopes share nothing.
type Scope struct {
	rt          *goja.Runtime
	resolver    *loader.Resolver
	filesystems map[string]afero.Fs
	logger      logrus.FieldLogger
	ctxPtr      *context.Context
	modules     map[string]moduleRecord
}

// NewScope creates a scope over the given filesystems and bootstraps its
// globals. The host globals are exported through the capability bridge, so
// scripts get boundary-safe views rather than the live Go objects. Any
// failure to install a global makes the whole scope unusable and is
// returned as-is.
func NewScope(
	logger logrus.FieldLogger, filesystems map[string]afero.Fs,
	rtOpts lib.RuntimeOptions, globals map[string]interface{},
) (*Scope, error) {
	rt := goja.New()
	rt.SetFieldNameMapper(common.FieldNameMapper{})
	rt.SetRandSource(common.NewRandSource())
	rt.SetParserOptions(parser.WithDisableSourceMaps)

	ctx := context.Background()
	s := &Scope{
		rt:          rt,
		resolver:    loader.NewResolver(logger, filesystems["file"], rtOpts.IncludePath),
		filesystems: filesystems,
		logger:      logger,
		ctxPtr:      &ctx,
		modules:     make(map[string]moduleRecord),
	}
	if err := s.bootstrap(rtOpts, globals); err != nil {
		return nil, err
	}
	return s, nil
}

// bootstrap installs the fixed globals. Called exactly once, from NewScope.
func (s *Scope) bootstrap(rtOpts lib.RuntimeOptions, globals map[string]interface{}) error {
	var c *console
	if rtOpts.ConsoleOutput.Valid {
		level := logrus.InfoLevel
		if l, ok := s.logger.(*logrus.Logger); ok {
			level = l.GetLevel()
		}
		var err error
		c, err = newFileConsole(rtOpts.ConsoleOutput.String, &logrus.JSONFormatter{}, level)
		if err != nil {
			return err
		}
	} else {
		c = newConsole(s.logger)
	}
	if _, err := common.ExportTo(s.rt, nil, "console", c, s.ctxPtr); err != nil {
		return err
	}

	_ = common.BindToGlobal(s.rt, common.Export(s.rt, &initAPI{scope: s}, s.ctxPtr))

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := common.ExportTo(s.rt, nil, name, globals[name], s.ctxPtr); err != nil {
			return err
		}
	}
	return nil
}

// Load runs the entry script named by the descriptor directly against the
// shared top-level context. Entry scripts see exactly the bootstrapped
// globals; no module namespace is created for them and nothing is cached.
func (s *Scope) Load(md ModuleDescriptor) error {
	s.logger.WithFields(logrus.Fields{"id": md.ID, "uri": md.URI}).Debug("Loading entry script...")
	return s.LoadFromURI(md.URI)
}

// LoadFromURI is Load without the descriptor id. The uri may carry the file
// scheme or be a plain absolute path.
func (s *Scope) LoadFromURI(uri string) error {
	src, err := loader.Load(s.logger, s.filesystems, uri, uri)
	if err != nil {
		return err
	}
	pgm, err := goja.Compile(src.Location, string(src.Data), true)
	if err != nil {
		return err
	}
	_, err = s.rt.RunProgram(pgm)
	return err
}

// Runtime exposes the underlying JavaScript runtime, for evaluating
// interactive input against the shared scope.
func (s *Scope) Runtime() *goja.Runtime { return s.rt }

// SetContext replaces the context injected into context-taking capability
// calls. Canceling it makes those calls fail until a fresh context is set.
func (s *Scope) SetContext(ctx context.Context) { *s.ctxPtr = ctx }
