package dispatcher

import (
	"context"
	"fmt"

	"github.com/garyjia/purchase-approval/internal/domain/event"
)

// Handler consumes one transition event
type Handler func(ctx context.Context, evt *event.Event) error

// AllEvents subscribes a handler to every event type
const AllEvents event.Type = "*"

// HandlerInfo is a registration. ListHandlers returns copies with Handler unset.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// invoke runs the handler, turning a panic into an error
func (h HandlerInfo) invoke(ctx context.Context, evt *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked on %s: %v", h.Name, evt.Type, r)
		}
	}()
	return h.Handler(ctx, evt)
}

func (h HandlerInfo) public() HandlerInfo {
	return HandlerInfo{Name: h.Name, EventType: h.EventType}
}
