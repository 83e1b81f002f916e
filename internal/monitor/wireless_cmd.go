package monitor

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// execWirelessSource shells out to the platform wireless query command.
type execWirelessSource struct {
	argv []string
}

// NewWirelessCommand returns the production wireless source. argv overrides
// the platform default (`netsh wlan show interfaces` on Windows); on other
// platforms with no override configured, every query reports adapter
// absence and the tracker idles.
func NewWirelessCommand(argv []string) WirelessSource {
	if len(argv) == 0 && runtime.GOOS == "windows" {
		argv = []string{"netsh", "wlan", "show", "interfaces"}
	}
	return &execWirelessSource{argv: argv}
}

func (s *execWirelessSource) Query(ctx context.Context) (string, error) {
	if len(s.argv) == 0 {
		return "", ErrNoWireless
	}

	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	out, err := cmd.CombinedOutput()
	text := string(out)

	// The command reports denial and adapter absence in its output, not
	// reliably in its exit code.
	if cerr := classifyWirelessOutput(text); cerr != nil {
		return "", cerr
	}
	if err != nil {
		return "", fmt.Errorf("run %s: %w", s.argv[0], err)
	}
	return text, nil
}

func classifyWirelessOutput(text string) error {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "there is no wireless interface"):
		return ErrNoWireless
	case strings.Contains(lower, "access is denied"),
		strings.Contains(lower, "requires elevation"),
		strings.Contains(lower, "location permission"):
		return ErrWirelessDenied
	}
	return nil
}
