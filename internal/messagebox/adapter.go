package messagebox

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// Adapter commands.
const (
	CommandBrowse          = "browse"
	CommandBrowse3         = "browse3"
	CommandBrowseGH        = "browseGH"
	CommandBrowseAlisa     = "browseAlisa"
	CommandUpdate          = "update"
	CommandDebug           = "debug"
	CommandUpdateValidTill = "updateValidTill"
)

// Commands lists every command Adapter sends.
var Commands = []string{
	CommandBrowse,
	CommandBrowse3,
	CommandBrowseGH,
	CommandBrowseAlisa,
	CommandUpdate,
	CommandDebug,
	CommandUpdateValidTill,
}

// IsCommand reports whether command is one Adapter sends.
func IsCommand(command string) bool {
	return slices.Contains(Commands, command)
}

// Sender sends one command to an adapter instance.
type Sender interface {
	SendTo(ctx context.Context, target, command string, payload any) (json.RawMessage, error)
}

// Adapter talks to one instance of the voice-assistant adapter.
type Adapter struct {
	sender Sender
	target string
}

// NewAdapter creates an Adapter for target, e.g. "iot.0".
func NewAdapter(sender Sender, target string) *Adapter {
	return &Adapter{sender: sender, target: target}
}

// Target returns the adapter instance id.
func (a *Adapter) Target() string {
	return a.target
}

// Send sends a known command.
func (a *Adapter) Send(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	if !IsCommand(command) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	return a.sender.SendTo(ctx, a.target, command, payload)
}

// SendTo implements the browse package's Sender for this adapter. The
// target argument must match the adapter's own target.
func (a *Adapter) SendTo(ctx context.Context, target, command string, payload any) (json.RawMessage, error) {
	if target != a.target {
		return nil, fmt.Errorf("%w: adapter %s asked to send to %s", ErrInvalidTarget, a.target, target)
	}
	return a.Send(ctx, command, payload)
}
