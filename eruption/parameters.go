package eruption

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eruption-project/eruption-sdk/internal/protocol"
)

// Parameter is one script parameter as sent to the daemon.
type Parameter = protocol.Parameter

// Parameters is an ordered set of script parameter values. Only the names
// present are sent; the daemon keeps its current value for the rest.
type Parameters struct {
	entries []Parameter
	index   map[string]int
}

// NewParameters returns an empty parameter set.
func NewParameters() *Parameters {
	return &Parameters{index: make(map[string]int)}
}

// Set coerces value to text with FormatParameterValue and stores it under
// name. Setting a name again replaces its value in place.
func (p *Parameters) Set(name string, value any) error {
	text, err := FormatParameterValue(value)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}
	return p.SetString(name, text)
}

// SetString stores an already formatted value.
func (p *Parameters) SetString(name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("parameter name must not be empty")
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}

	if i, ok := p.index[name]; ok {
		p.entries[i].Value = value
		return nil
	}
	p.index[name] = len(p.entries)
	p.entries = append(p.entries, Parameter{Name: name, Value: value})
	return nil
}

// Len returns the number of parameters.
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Values returns a copy of the parameters in insertion order.
func (p *Parameters) Values() []Parameter {
	if p == nil || len(p.entries) == 0 {
		return nil
	}
	return append([]Parameter(nil), p.entries...)
}

// FormatParameterValue renders a Go value the way the daemon parses
// parameter text: decimal integers, shortest round-trip floats, true/false,
// and Color as #rrggbbaa.
func FormatParameterValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedParameter, value)
}
