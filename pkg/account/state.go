package account

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/jnxxx/connectedcars-go/internal/log"
)

// Credential lifecycle states.
const (
	StateNoToken = "no_token"
	StateValid   = "valid"
	StateExpired = "expired"
)

const (
	eventAcquire = "acquire"
	eventExpire  = "expire"
	eventReset   = "reset"
)

func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateNoToken,
		fsm.Events{
			{Name: eventAcquire, Src: []string{StateNoToken, StateExpired}, Dst: StateValid},
			{Name: eventExpire, Src: []string{StateValid}, Dst: StateExpired},
			{Name: eventReset, Src: []string{StateValid, StateExpired}, Dst: StateNoToken},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug("Credential state %s -> %s (%s)", e.Src, e.Dst, e.Event)
			},
		},
	)
}

// transition fires event if the lifecycle permits it from the current state.
func transition(ctx context.Context, lifecycle *fsm.FSM, event string) {
	if !lifecycle.Can(event) {
		return
	}
	if err := lifecycle.Event(context.WithoutCancel(ctx), event); err != nil {
		log.Warning("Credential state transition %s failed: %s", event, err)
	}
}
