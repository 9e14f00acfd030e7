package wallpanel

import (
	"context"
	"fmt"
	"strings"
)

// Action is a host-facing service that can be routed to devices.
type Action int

const (
	ActionLoadStartURL Action = iota
	ActionSay
	ActionSoundPlay
	ActionLoadURL
	ActionSetBrightness
)

var actionNames = map[Action]string{
	ActionLoadStartURL:  "load_start_url",
	ActionSay:           "say",
	ActionSoundPlay:     "sound_play",
	ActionLoadURL:       "load_url",
	ActionSetBrightness: "set_brightness",
}

// Actions lists every action in declaration order.
func Actions() []Action {
	return []Action{
		ActionLoadStartURL,
		ActionSay,
		ActionSoundPlay,
		ActionLoadURL,
		ActionSetBrightness,
	}
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range Actions() {
		if actionNames[a] == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

type actionHandler func(ctx context.Context, d *Device, call Call) error

// handler maps each action to the device operation it triggers.
func (a Action) handler() (actionHandler, bool) {
	switch a {
	case ActionLoadStartURL:
		return func(ctx context.Context, d *Device, _ Call) error {
			return d.LoadStartURL(ctx)
		}, true
	case ActionSay:
		return func(ctx context.Context, d *Device, call Call) error {
			return d.Speak(ctx, call.Message)
		}, true
	case ActionSoundPlay:
		return func(ctx context.Context, d *Device, call Call) error {
			return d.PlaySound(ctx, call.URL)
		}, true
	case ActionLoadURL:
		return func(ctx context.Context, d *Device, call Call) error {
			return d.LoadURL(ctx, call.URL)
		}, true
	case ActionSetBrightness:
		return func(ctx context.Context, d *Device, call Call) error {
			return d.SetBrightness(ctx, *call.Brightness)
		}, true
	}
	return nil, false
}

// Call is one invocation of an action. An empty TargetIDs addresses every
// registered device.
type Call struct {
	Action     Action
	TargetIDs  []string
	Message    string
	URL        string
	Brightness *int
}

func (c Call) Validate() error {
	switch c.Action {
	case ActionLoadStartURL:
	case ActionSay:
		if c.Message == "" {
			return fmt.Errorf("%w: %s requires a message", ErrInvalidCall, c.Action)
		}
	case ActionSoundPlay, ActionLoadURL:
		if c.URL == "" {
			return fmt.Errorf("%w: %s requires a url", ErrInvalidCall, c.Action)
		}
	case ActionSetBrightness:
		if c.Brightness == nil {
			return fmt.Errorf("%w: %s requires a brightness", ErrInvalidCall, c.Action)
		}
		if *c.Brightness < 0 || *c.Brightness > 255 {
			return fmt.Errorf("%w: brightness %d out of range 0-255", ErrInvalidCall, *c.Brightness)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, c.Action)
	}
	return nil
}
