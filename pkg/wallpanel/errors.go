package wallpanel

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid device config")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidCall     = errors.New("invalid service call")
	ErrCommandRejected = errors.New("command rejected by device")
	ErrMalformedState  = errors.New("malformed device state")
)
