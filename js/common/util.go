package common

import (
	"github.com/dop251/goja"
)

// Throw a JS error; avoids re-wrapping exceptions that already crossed the
// boundary once.
func Throw(rt *goja.Runtime, err error) {
	if e, ok := err.(*goja.Exception); ok { //nolint:errorlint
		panic(e)
	}
	panic(rt.NewGoError(err))
}

// MustCompile compiles the given source or panics. Meant for programs
// embedded in the binary itself, which can't fail to compile.
func MustCompile(name, src string, strict bool) *goja.Program {
	pgm, err := goja.Compile(name, src, strict)
	if err != nil {
		panic(err)
	}
	return pgm
}
