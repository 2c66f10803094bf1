//go:build !cgo

package input

import (
	"fmt"

	"macroreel/internal/keys"
	"macroreel/internal/macro"
)

// Stub implementation for builds without cgo

var errUnsupported = fmt.Errorf("input hooks and synthesis require a cgo build")

// Listener represents a stub input listener
type Listener struct{}

// NewListener creates a new stub listener
func NewListener() *Listener {
	return &Listener{}
}

// Run fails immediately (stub)
func (l *Listener) Run(emit func(RawEvent)) error {
	return errUnsupported
}

// Injector represents a stub input injector
type Injector struct{}

// NewInjector creates a new stub injector
func NewInjector() *Injector {
	return &Injector{}
}

func (i *Injector) MoveTo(x, y int32) error                      { return errUnsupported }
func (i *Injector) ButtonToggle(b macro.Button, down bool) error { return errUnsupported }
func (i *Injector) Click(b macro.Button) error                   { return errUnsupported }
func (i *Injector) KeyToggle(k keys.Key, down bool) error        { return errUnsupported }
func (i *Injector) TypeText(s string) error                      { return errUnsupported }
func (i *Injector) Scroll(dx, dy int64) error                    { return errUnsupported }
