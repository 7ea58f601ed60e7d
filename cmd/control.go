package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// controlSurface is the host side of the "wisp" global. The fields cross
// into the scope through the capability bridge, so scripts see boundary-safe
// views of them, and the methods let scripts pause or stop the host.
type controlSurface struct {
	Version string            `js:"version"`
	Env     map[string]string `js:"env"`
	Args    []string          `js:"args"`

	exit func(code int)
}

// Sleep waits the provided seconds before returning to the script. Ending
// the scope context cuts the wait short.
func (*controlSurface) Sleep(ctx context.Context, secs float64) {
	timer := time.NewTimer(time.Duration(secs * float64(time.Second)))
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}
}

// Fail is a fancy way of saying `throw "something"`.
func (*controlSurface) Fail(msg string) (goja.Value, error) {
	return goja.Undefined(), errors.New(msg)
}

// Exit stops the running script with the given process exit code.
func (c *controlSurface) Exit(code int) {
	if c.exit != nil {
		c.exit(code)
	}
}

// scriptExit is the interrupt payload carried out of the runtime when a
// script calls wisp.exit().
type scriptExit struct {
	code int
}

func (e *scriptExit) Error() string {
	return fmt.Sprintf("script exit with code %d", e.code)
}
