package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"pagenav/browser"
	"pagenav/dom"
)

// Loader is the navigator surface scripts reach through
// window.dynamicLoader.
type Loader interface {
	ClearCache()
	Load(url string)
}

// VM runs scripts in a goja runtime bound to a window. Like the window it
// must only be used from the window's loop.
type VM struct {
	win    *browser.Window
	rt     *goja.Runtime
	logger *slog.Logger
	loader Loader
	ran    int
}

// NewVM creates a runtime exposing window, document and console.
func NewVM(win *browser.Window, logger *slog.Logger) *VM {
	if logger == nil {
		logger = slog.Default()
	}
	vm := &VM{
		win:    win,
		rt:     goja.New(),
		logger: logger.With("component", "script"),
	}
	vm.init()
	return vm
}

// Bind exposes a navigator as window.dynamicLoader.
func (vm *VM) Bind(l Loader) {
	vm.loader = l
}

// Executed returns how many scripts ran successfully.
func (vm *VM) Executed() int { return vm.ran }

// Run executes src unless the element is a non-JavaScript block.
func (vm *VM) Run(ctx context.Context, src string, attrs []html.Attribute) error {
	if !Executable(attrs) || strings.TrimSpace(src) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := vm.rt.RunString(src); err != nil {
		return fmt.Errorf("running script: %w", err)
	}
	vm.ran++
	return nil
}

// Load fetches srcURL off the loop and runs it when it arrives. Failures
// are logged; they never fail the navigation.
func (vm *VM) Load(ctx context.Context, srcURL string) error {
	vm.win.Loop.Go(func() func() {
		body, _, err := vm.win.Source().Get(ctx, srcURL)
		return func() {
			if err != nil {
				vm.logger.Warn("script load failed", "src", srcURL, "error", err)
				return
			}
			if _, err := vm.rt.RunScript(srcURL, body); err != nil {
				vm.logger.Warn("script failed", "src", srcURL, "error", err)
				return
			}
			vm.ran++
		}
	})
	return nil
}

// Eval runs src and exports the result. It is meant for diagnostics.
func (vm *VM) Eval(src string) (any, error) {
	v, err := vm.rt.RunString(src)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

func (vm *VM) init() {
	rt := vm.rt
	global := rt.GlobalObject()

	console := rt.NewObject()
	for name, level := range map[string]slog.Level{
		"log": slog.LevelInfo, "info": slog.LevelInfo, "debug": slog.LevelDebug,
		"warn": slog.LevelWarn, "error": slog.LevelError,
	} {
		console.Set(name, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			vm.logger.Log(context.Background(), level, strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	global.Set("console", console)

	document := rt.NewObject()
	vm.accessor(document, "title",
		func() goja.Value { return rt.ToValue(vm.win.Doc.Title()) },
		func(v goja.Value) { vm.win.Doc.SetTitle(v.String()) })
	document.Set("getElementById", func(id string) goja.Value {
		n := vm.win.Doc.ByID(id)
		if n == nil {
			return goja.Null()
		}
		return vm.element(n)
	})
	global.Set("document", document)

	location := rt.NewObject()
	vm.accessor(location, "href",
		func() goja.Value { return rt.ToValue(vm.win.Href()) },
		func(v goja.Value) { vm.win.Assign(v.String()) })
	vm.accessor(location, "pathname",
		func() goja.Value { return rt.ToValue(vm.win.Location().Path) },
		nil)

	window := global
	window.Set("window", global)
	window.Set("location", location)
	window.Set("alert", func(msg string) { vm.win.Alert(msg) })
	window.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			return goja.Undefined()
		}
		ms := call.Argument(1).ToInteger()
		vm.win.Loop.SetTimeout(time.Duration(ms)*time.Millisecond, func() {
			if _, err := fn(goja.Undefined()); err != nil {
				vm.logger.Warn("timer callback failed", "error", err)
			}
		})
		return goja.Undefined()
	})

	dl := rt.NewObject()
	dl.Set("clearCache", func() {
		if vm.loader != nil {
			vm.loader.ClearCache()
		}
	})
	dl.Set("loadPage", func(u string) {
		if vm.loader != nil {
			vm.loader.Load(u)
			return
		}
		vm.win.Assign(u)
	})
	window.Set("dynamicLoader", dl)
}

// element wraps n in a minimal element object.
func (vm *VM) element(n *html.Node) *goja.Object {
	obj := vm.rt.NewObject()
	vm.accessor(obj, "textContent",
		func() goja.Value { return vm.rt.ToValue(dom.TextContent(n)) },
		func(v goja.Value) { dom.SetText(n, v.String()) })
	obj.Set("getAttribute", func(name string) goja.Value {
		if v, ok := dom.Attr(n, name); ok {
			return vm.rt.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(name, val string) { dom.SetAttr(n, name, val) })
	return obj
}

func (vm *VM) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := vm.rt.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	setter := goja.Undefined()
	if set != nil {
		setter = vm.rt.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	if err := obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		vm.logger.Error("defining property", "name", name, "error", err)
	}
}
