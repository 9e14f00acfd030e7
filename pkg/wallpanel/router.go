package wallpanel

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Result is the outcome of an action on one device.
type Result struct {
	DeviceID string `json:"entity_id"`
	Error    string `json:"error,omitempty"`

	err error
}

func (r Result) Err() error { return r.err }

// Router dispatches action calls to the devices of a registry.
type Router struct {
	registry *Registry
	logger   log.FieldLogger
}

func NewRouter(registry *Registry, logger log.FieldLogger) *Router {
	return &Router{
		registry: registry,
		logger:   logger,
	}
}

// Route runs call on every selected device. A failure on one device does
// not stop the others; it is reported in that device's Result.
func (rt *Router) Route(ctx context.Context, call Call) ([]Result, error) {
	if err := call.Validate(); err != nil {
		return nil, err
	}

	handle, ok := call.Action.handler()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, call.Action)
	}

	devices := rt.registry.Select(call.TargetIDs)
	rt.logger.Debugf("Routing %s to %d device(s)", call.Action, len(devices))

	results := make([]Result, 0, len(devices))
	for _, d := range devices {
		res := Result{DeviceID: d.ID()}
		if err := handle(ctx, d, call); err != nil {
			res.err = err
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	return results, nil
}
