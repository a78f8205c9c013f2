package types

import (
	"fmt"
	"strings"
)

// StepStatus is the outcome of BeginStep.
type StepStatus uint8

const (
	// StatusReady means that the step is active and data can be read.
	StatusReady StepStatus = iota
	// StatusNotReady means that writers did not publish the next step within timeout. Retry later.
	StatusNotReady
	// StatusEndOfStream means that writers terminated the stream.
	StatusEndOfStream
	// StatusError is returned together with a non-nil error.
	StatusError
)

func (s StepStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusNotReady:
		return "not_ready"
	case StatusEndOfStream:
		return "end_of_stream"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// StepMode is the access mode requested by BeginStep.
type StepMode uint8

const (
	StepModeRead StepMode = iota
	StepModeAppend
	StepModeUpdate
)

func (m StepMode) String() string {
	switch m {
	case StepModeRead:
		return "read"
	case StepModeAppend:
		return "append"
	case StepModeUpdate:
		return "update"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// SyncMode selects how often the write pattern is negotiated.
type SyncMode uint8

const (
	// SyncFixed negotiates write pattern once per stream.
	SyncFixed SyncMode = iota
	// SyncFlexible negotiates write pattern on every step.
	SyncFlexible
)

func (m SyncMode) String() string {
	switch m {
	case SyncFixed:
		return "fixed"
	case SyncFlexible:
		return "flexible"
	}
	return fmt.Sprintf("sync(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m SyncMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SyncMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "fixed":
		*m = SyncFixed
	case "flexible":
		*m = SyncFlexible
	default:
		return fmt.Errorf("unknown step mode %q", text)
	}
	return nil
}
