package flow

import (
	"errors"
	"fmt"

	"github.com/bilgisen/noticias/internal/notice"
)

// ErrInvalidSnapshot is returned by Restore for snapshots that do not
// describe a resting flow.
var ErrInvalidSnapshot = errors.New("invalid flow snapshot")

// Snapshot is the persisted form of a flow between two requests. It has no
// password field and no code field.
type Snapshot struct {
	Kind    Kind   `json:"kind"`
	State   State  `json:"state"`
	Email   string `json:"email,omitempty"`
	Method  Method `json:"method,omitempty"`
	Message string `json:"message,omitempty"`
}

// Snapshot captures the flow. A flow in the middle of a call is captured in
// the state it left.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		Kind:    f.kind,
		State:   f.state,
		Email:   f.email,
		Method:  f.method,
		Message: f.message,
	}
}

var resting = map[State]bool{
	StateIdle:          true,
	StateAuthenticated: true,
	StateMFAPending:    true,
	StateFailed:        true,
	StateOTPSent:       true,
	StateLinkSent:      true,
	StateVerified:      true,
	StateOTPFailed:     true,
}

// Restore rebuilds a flow from a snapshot.
func Restore(s Snapshot, auth Authenticator, notify notice.Notifier) (*Flow, error) {
	if s.Kind != KindLogin && s.Kind != KindRegister {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidSnapshot, s.Kind)
	}
	if !resting[s.State] {
		return nil, fmt.Errorf("%w: state %q", ErrInvalidSnapshot, s.State)
	}
	if s.Method != "" && s.Method != MethodComputer && s.Method != MethodMovil {
		return nil, fmt.Errorf("%w: method %q", ErrInvalidSnapshot, s.Method)
	}

	f := New(s.Kind, auth, notify)
	f.state = s.State
	f.email = s.Email
	f.method = s.Method
	f.message = s.Message
	return f, nil
}
