// Package flags contains pflag values for types of the module.
package flags

import (
	"encoding"
	"fmt"

	"github.com/spf13/pflag"
)

type textVar interface {
	encoding.TextUnmarshaler
	fmt.Stringer
}

// TextValue is a flag backed by a type that implements encoding.TextUnmarshaler.
type TextValue struct {
	value textVar
	kind  string
}

// NewTextValue writes parsed flag into value.
func NewTextValue(value textVar, kind string) *TextValue {
	return &TextValue{value: value, kind: kind}
}

func (v *TextValue) String() string {
	return v.value.String()
}

func (v *TextValue) Set(text string) error {
	return v.value.UnmarshalText([]byte(text))
}

func (v *TextValue) Type() string {
	return v.kind
}

var _ pflag.Value = (*TextValue)(nil)
