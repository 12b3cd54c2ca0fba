package cli

import (
	"testing"

	"intent-trader/internal/config"
)

func TestRunCmdFlags(t *testing.T) {
	cmd := newRunCmd(&App{Config: config.Default()})

	if cmd.Flags().Lookup("expire") == nil {
		t.Error("run must expose the --expire flag")
	}
	if cmd.Flags().Lookup("timeout") == nil {
		t.Error("run must expose the --timeout flag")
	}
	// Every registered flag is honored by the command; the gate is steered by
	// --expire alone.
	if cmd.Flags().Lookup("assume-conditions") != nil {
		t.Error("run must not register flags it does not read")
	}
}
