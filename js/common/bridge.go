// Package common contains the bridge machinery between Go objects and the
// JavaScript side of a scope.
package common

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"github.com/serenize/snaker"
)

var (
	ctxPtrT = reflect.TypeOf((*context.Context)(nil))
	ctxT    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorT  = reflect.TypeOf((*error)(nil)).Elem()

	constructWrap = MustCompile(
		"__constructor__",
		`(function(impl) { return function() { return impl.apply(this, arguments); } })`,
		true,
	)
)

// FieldName returns the JS name for an exported struct field. The name is
// snake_cased, with respect for certain common initialisms (URL, ID, HTTP,
// etc).
func FieldName(t reflect.Type, f reflect.StructField) string {
	// PkgPath is non-empty for unexported fields.
	if f.PkgPath != "" {
		return ""
	}

	// Allow a `js:"name"` tag to override the default name.
	if tag := f.Tag.Get("js"); tag != "" {
		// Matching encoding/json, `js:"-"` hides a field.
		if tag == "-" {
			return ""
		}
		return tag
	}

	return snaker.CamelToSnake(f.Name)
}

// MethodName returns the JS name for an exported method. The first letter of
// the method's name is lowercased, otherwise it is unaltered.
func MethodName(t reflect.Type, m reflect.Method) string {
	// PkgPath is non-empty for unexported methods.
	if m.PkgPath != "" {
		return ""
	}

	// A method with a name beginning with an X is a constructor, and just gets
	// the prefix stripped. They also get some special treatment from Export(),
	// see further down.
	if m.Name[0] == 'X' {
		return m.Name[1:]
	}

	return strings.ToLower(m.Name[0:1]) + m.Name[1:]
}

// FieldNameMapper for goja.Runtime.SetFieldNameMapper()
type FieldNameMapper struct{}

// FieldName is part of the goja.FieldNameMapper interface
// https://godoc.org/github.com/dop251/goja#FieldNameMapper
func (FieldNameMapper) FieldName(t reflect.Type, f reflect.StructField) string { return FieldName(t, f) }

// MethodName is part of the goja.FieldNameMapper interface
// https://godoc.org/github.com/dop251/goja#FieldNameMapper
func (FieldNameMapper) MethodName(t reflect.Type, m reflect.Method) string { return MethodName(t, m) }

// BindToGlobal binds an object's members to the global scope. Returns a
// function that un-binds them. Note that this will panic if passed something
// that isn't a struct; please don't do that.
func BindToGlobal(rt *goja.Runtime, data map[string]interface{}) func() {
	keys := make([]string, len(data))
	i := 0
	for k, v := range data {
		_ = rt.Set(k, v)
		keys[i] = k
		i++
	}

	return func() {
		for _, k := range keys {
			_ = rt.Set(k, goja.Undefined())
		}
	}
}

// Export builds the boundary-safe view of a Go object: a map of everything
// scripts inside the scope may see of it. Exported methods become adapter
// functions closing over the original object, exported fields are copied
// across once, by value. Flow is one-directional; reassigning a field on the
// original afterwards doesn't change what was exported, though mutations
// reached through a shared reference (maps, slices, pointers) stay visible
// on both sides.
//
// Methods taking a context.Context as their first parameter get it injected
// from ctxPtr at call time and fail if the context is missing or already
// done. Methods returning (T, error) throw the error as a JS exception
// instead of returning it.
func Export(rt *goja.Runtime, v interface{}, ctxPtr *context.Context) map[string]interface{} {
	exports := make(map[string]interface{})

	val := reflect.ValueOf(v)
	typ := val.Type()
	for i := 0; i < typ.NumMethod(); i++ {
		meth := typ.Method(i)
		name := MethodName(typ, meth)
		if name == "" {
			continue
		}
		fn := val.Method(i)

		// Figure out if we want to do any wrapping of it.
		fnT := fn.Type()
		numIn := fnT.NumIn()
		numOut := fnT.NumOut()
		hasError := numOut > 1 && fnT.Out(1) == errorT
		wantsContext := false
		wantsContextPtr := false
		if numIn > 0 {
			switch fnT.In(0) {
			case ctxT:
				wantsContext = true
			case ctxPtrT:
				wantsContextPtr = true
			}
		}
		if hasError || wantsContext || wantsContextPtr {
			// Variadic functions are called a bit differently.
			variadic := fnT.IsVariadic()

			// Collect input types, but skip the context (if any).
			var in []reflect.Type
			if numIn > 0 {
				inOffset := 0
				if wantsContext || wantsContextPtr {
					inOffset = 1
				}
				in = make([]reflect.Type, numIn-inOffset)
				for i := inOffset; i < numIn; i++ {
					in[i-inOffset] = fnT.In(i)
				}
			}

			// Collect the output type (if any). JS functions can only return a
			// single value, but allow returning an error, which will be thrown
			// as a JS exception.
			var out []reflect.Type
			if numOut != 0 {
				out = []reflect.Type{fnT.Out(0)}
			}

			methName := meth.Name
			wrappedFn := fn
			fn = reflect.MakeFunc(
				reflect.FuncOf(in, out, variadic),
				func(args []reflect.Value) []reflect.Value {
					if wantsContext {
						if ctxPtr == nil || *ctxPtr == nil {
							Throw(rt, fmt.Errorf("%s needs a valid scope context", methName))
						}
						select {
						case <-(*ctxPtr).Done():
							Throw(rt, fmt.Errorf("scope has ended"))
						default:
						}
						args = append([]reflect.Value{reflect.ValueOf(*ctxPtr)}, args...)
					} else if wantsContextPtr {
						args = append([]reflect.Value{reflect.ValueOf(ctxPtr)}, args...)
					}

					var res []reflect.Value
					if variadic {
						res = wrappedFn.CallSlice(args)
					} else {
						res = wrappedFn.Call(args)
					}

					if hasError {
						if !res[1].IsNil() {
							Throw(rt, res[1].Interface().(error))
						}
						res = res[:1]
					}

					return res
				},
			)
		}

		// X-prefixed methods are assumed to be constructors; use a closure to
		// wrap them in a pure-JS function to allow them to be `new`d.
		if meth.Name[0] == 'X' {
			wrapperV, _ := rt.RunProgram(constructWrap)
			wrapper, _ := goja.AssertFunction(wrapperV)
			v, _ := wrapper(goja.Undefined(), rt.ToValue(fn.Interface()))
			exports[name] = v
		} else {
			exports[name] = fn.Interface()
		}
	}

	// If v is a pointer, we need to indirect it to access fields.
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = val.Type()
	}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name := FieldName(typ, field)
		if name != "" {
			exports[name] = val.Field(i).Interface()
		}
	}

	return exports
}

// ExportTo installs the boundary-safe view of v on target as an ordinary JS
// object under the given name, and returns that object. A nil target means
// the runtime's global object.
func ExportTo(
	rt *goja.Runtime, target *goja.Object, name string, v interface{}, ctxPtr *context.Context,
) (*goja.Object, error) {
	if target == nil {
		target = rt.GlobalObject()
	}

	exports := Export(rt, v, ctxPtr)
	keys := make([]string, 0, len(exports))
	for k := range exports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := rt.NewObject()
	for _, k := range keys {
		if err := obj.Set(k, rt.ToValue(exports[k])); err != nil {
			return nil, err
		}
	}
	if err := target.Set(name, obj); err != nil {
		return nil, err
	}
	return obj, nil
}
