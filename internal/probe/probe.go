// Package probe reads the name of the wireless network the host is joined to
// by running the platform's wireless status utility.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"wifistatus/internal/platform"
)

// ErrProbe marks a failure to run or read the wireless utility. It is never
// treated as "no network".
var ErrProbe = errors.New("wifi probe failed")

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w (%s)", err, msg)
		}
		return out, err
	}
	return out, nil
}

const airportPath = "/System/Library/PrivateFrameworks/Apple80211.framework/Versions/Current/Resources/airport"

type variant struct {
	command []string
	parse   func(out string) string
}

var variants = map[platform.Kind]variant{
	platform.Linux:   {command: []string{"iwgetid", "-r"}, parse: parseIwgetid},
	platform.MacOS:   {command: []string{airportPath, "-I"}, parse: parseAirport},
	platform.Windows: {command: []string{"netsh", "wlan", "show", "interfaces"}, parse: parseNetsh},
}

// WiFi probes the current network name on one platform.
type WiFi struct {
	kind    platform.Kind
	command []string
	parse   func(string) string
	runner  Runner
}

// New returns the probe for kind. command, when non-empty, replaces the
// built-in utility; its output must use the same format.
func New(kind platform.Kind, runner Runner, command []string) (*WiFi, error) {
	v, ok := variants[kind]
	if !ok {
		return nil, fmt.Errorf("probe: no wifi probe for %s", kind)
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	cmd := v.command
	if len(command) > 0 {
		cmd = command
	}
	return &WiFi{kind: kind, command: cmd, parse: v.parse, runner: runner}, nil
}

func (w *WiFi) Command() []string { return append([]string(nil), w.command...) }

// Name returns the first network name in the utility output, or "" when the
// host is not associated with any network.
func (w *WiFi) Name(ctx context.Context) (string, error) {
	out, err := w.runner.Run(ctx, w.command[0], w.command[1:]...)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrProbe, strings.Join(w.command, " "), err)
	}
	return w.parse(string(out)), nil
}
