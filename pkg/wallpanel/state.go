package wallpanel

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOn
	StatusOff
)

func (s Status) String() string {
	switch s {
	case StatusOn:
		return "on"
	case StatusOff:
		return "off"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "on":
		*s = StatusOn
	case "off":
		*s = StatusOff
	case "unknown":
		*s = StatusUnknown
	default:
		return fmt.Errorf("invalid status: %q", text)
	}
	return nil
}

// Attributes are the values reported by the device on the last successful
// poll.
type Attributes struct {
	CurrentURL string `json:"currentUrl"`
	ScreenOn   bool   `json:"screenOn"`
	Brightness int    `json:"brightness"`
}

// State is the last known state of a device.
type State struct {
	Status     Status
	Attributes Attributes
	Updated    time.Time // zero until the first successful poll
}

func (s State) Known() bool {
	return !s.Updated.IsZero()
}

// parseState extracts the attributes from a state payload. Error payloads
// and bodies with missing or mistyped fields are rejected.
func parseState(p Payload) (Attributes, error) {
	if p.IsError() {
		return Attributes{}, fmt.Errorf("%w: %s", ErrMalformedState, p.StatusText())
	}

	screenOn, ok := p["screenOn"].(bool)
	if !ok {
		return Attributes{}, fmt.Errorf("%w: screenOn is missing or not a boolean", ErrMalformedState)
	}
	currentURL, ok := p["currentUrl"].(string)
	if !ok {
		return Attributes{}, fmt.Errorf("%w: currentUrl is missing or not a string", ErrMalformedState)
	}
	brightness, err := toInt(p["brightness"])
	if err != nil {
		return Attributes{}, fmt.Errorf("%w: brightness: %v", ErrMalformedState, err)
	}

	return Attributes{
		CurrentURL: currentURL,
		ScreenOn:   screenOn,
		Brightness: brightness,
	}, nil
}

// toInt accepts only whole numbers that fit in an int.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			if i < math.MinInt || i > math.MaxInt {
				return 0, fmt.Errorf("%d out of range", i)
			}
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s is not a number", n)
		}
		return toInt(f)
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n >= math.MaxInt {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
