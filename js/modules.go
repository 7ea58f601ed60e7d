package js

import (
	"github.com/dop251/goja"

	"go.wisp.dev/wisp/js/common"
	"go.wisp.dev/wisp/loader"
)

// moduleRecord is one entry of a scope's module registry: the compiled
// program, plus the module object all importers share once execution has
// started.
type moduleRecord struct {
	pgm    *goja.Program
	module *goja.Object
}

// initAPI is the slice of a scope deliberately reachable from inside the
// shared context; its exported methods become globals at bootstrap.
type initAPI struct {
	scope *Scope
}

// Require is the implementation behind the require() global.
func (i *initAPI) Require(specifier string) goja.Value {
	v, err := i.scope.RequireModule(specifier)
	if err != nil {
		common.Throw(i.scope.rt, err)
	}
	return v
}

// RequireModule resolves the specifier against the scope's search path, then
// loads, compiles and executes the module exactly once, caching its exports
// under the resolved location. Two specifiers resolving to the same location
// share one execution and one exports object.
//
// The registry entry is created before the module body runs: a circular
// require re-entering for a module that is still executing observes its
// partially populated exports instead of recursing. If the body fails, the
// entry is dropped again so a later require retries from scratch, and the
// failure is returned to the caller as-is.
func (s *Scope) RequireModule(specifier string) (goja.Value, error) {
	location, err := s.resolver.Resolve(specifier)
	if err != nil {
		return nil, err
	}

	rec, ok := s.modules[location]
	if !ok || rec.module == nil {
		exports := s.rt.NewObject()
		module := s.rt.NewObject()
		if err := module.Set("exports", exports); err != nil {
			return nil, err
		}

		if rec.pgm == nil {
			src, err := loader.Load(s.logger, s.filesystems, location, specifier)
			if err != nil {
				return nil, err
			}
			rec.pgm, err = compileModule(location, string(src.Data))
			if err != nil {
				return nil, err
			}
		}

		rec.module = module
		s.modules[location] = rec

		f, err := s.rt.RunProgram(rec.pgm)
		if err == nil {
			if call, ok := goja.AssertFunction(f); ok {
				_, err = call(exports, module, exports)
			}
		}
		if err != nil {
			delete(s.modules, location)
			return nil, err
		}
	}

	return rec.module.Get("exports"), nil
}

// compileModule compiles a module source wrapped in a function scope, so the
// body runs against its own module/exports pair nested inside the shared
// context.
func compileModule(location, src string) (*goja.Program, error) {
	return goja.Compile(location, "(function(module, exports){\n"+src+"\n})\n", true)
}
