package wallpanel

import (
	"encoding/json"
	"strconv"
)

// Command is a single key/value directive posted to the device.
// The device API accepts exactly one key per request.
type Command struct {
	key   string
	value any
}

func (c Command) Key() string { return c.key }

func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{c.key: c.value})
}

func (c Command) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return c.key
	}
	return string(b)
}

// RelaunchCommand reloads the configured start URL.
func RelaunchCommand() Command {
	return Command{key: "relaunch", value: true}
}

func URLCommand(url string) Command {
	return Command{key: "url", value: url}
}

// BrightnessCommand sets the screen brightness. The device expects the
// value string encoded.
func BrightnessCommand(brightness int) Command {
	return Command{key: "brightness", value: strconv.Itoa(brightness)}
}

func AudioCommand(url string) Command {
	return Command{key: "audio", value: url}
}

func SpeakCommand(message string) Command {
	return Command{key: "speak", value: message}
}
