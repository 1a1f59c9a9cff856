package gateway

import (
	"context"

	"github.com/rahul/kadam/internal/agent"
)

// Messenger defines the interface for communication gateways (Telegram, Discord, etc.)
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Director runs one objective to completion and hands back the final state,
// including whatever partial results accumulated before a failure.
type Director interface {
	RunState(ctx context.Context, objective string) (*agent.State, error)
}
