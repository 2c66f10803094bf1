//go:build cgo

package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"macroreel/internal/keys"
	"macroreel/internal/macro"
)

// Injector synthesizes input through robotgo.
type Injector struct{}

// NewInjector creates a new injector
func NewInjector() *Injector {
	return &Injector{}
}

func (i *Injector) MoveTo(x, y int32) error {
	robotgo.Move(int(x), int(y))
	return nil
}

func (i *Injector) ButtonToggle(b macro.Button, down bool) error {
	if down {
		return robotgo.Toggle(robotgoButton(b))
	}
	return robotgo.Toggle(robotgoButton(b), "up")
}

func (i *Injector) Click(b macro.Button) error {
	robotgo.Click(robotgoButton(b))
	return nil
}

func (i *Injector) KeyToggle(k keys.Key, down bool) error {
	name, ok := RobotgoKeyName(k)
	if !ok {
		return fmt.Errorf("key %s cannot be synthesized", k)
	}
	state := "up"
	if down {
		state = "down"
	}
	return robotgo.KeyToggle(name, state)
}

func (i *Injector) TypeText(s string) error {
	robotgo.TypeStr(s)
	return nil
}

func (i *Injector) Scroll(dx, dy int64) error {
	robotgo.Scroll(int(dx), int(dy))
	return nil
}
