package provider

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/runinator/runinator/pkg/log"
)

func init() {
	Register("exec", execProvider{})
	Register("console", consoleProvider{})
}

// execProvider runs function as a local command, with configuration
// parsed as a JSON array of string arguments.
type execProvider struct{}

func (execProvider) Call(ctx context.Context, function, configuration string, timeout time.Duration) (int, error) {
	var args []string
	if configuration != "" {
		if err := json.Unmarshal([]byte(configuration), &args); err != nil {
			return -1, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, function, args...)
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// consoleProvider writes configuration to the worker's logger and
// always succeeds. Used by scenarios that only need to prove dispatch
// and execution round-trip end to end, without standing up a real
// external command.
type consoleProvider struct{}

func (consoleProvider) Call(ctx context.Context, function, configuration string, timeout time.Duration) (int, error) {
	log.WithComponent("provider.console").Info().
		Str("function", function).
		Str("configuration", configuration).
		Msg("console task fired")
	return 0, nil
}
