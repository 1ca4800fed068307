package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

// ClipboardError reports that no clipboard utility is available
type ClipboardError struct {
	OS      string
	Message string
}

func (e *ClipboardError) Error() string {
	return e.Message
}

// NewClipboardError creates a new ClipboardError with installation instructions
func NewClipboardError() *ClipboardError {
	return &ClipboardError{
		OS:      runtime.GOOS,
		Message: "no clipboard utility found. " + GetInstallInstructions(),
	}
}

// Method names reported by Copy
const (
	MethodOSC52 = "osc52"
)

type command struct {
	name string
	args []string
}

// Runner executes name with args, feeding stdin
type Runner func(ctx context.Context, name string, args []string, stdin string) error

// Clipboard copies text through the first working platform utility, falling
// back to the OSC 52 terminal escape when an output is configured
type Clipboard struct {
	commands []command
	lookPath func(string) (string, error)
	run      Runner
	osc52    *termenv.Output
	timeout  time.Duration
}

// New returns a clipboard for the current platform. When osc52 is non-nil,
// text is written to it as an OSC 52 sequence if no utility succeeds.
func New(osc52 io.Writer) *Clipboard {
	c := &Clipboard{
		commands: platformCommands(runtime.GOOS),
		lookPath: exec.LookPath,
		run:      execRunner,
		timeout:  5 * time.Second,
	}
	if osc52 != nil {
		c.osc52 = termenv.NewOutput(osc52)
	}
	return c
}

func platformCommands(goos string) []command {
	switch goos {
	case "darwin":
		return []command{{name: "pbcopy"}}
	case "windows":
		return []command{{name: "cmd", args: []string{"/c", "clip"}}}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []command{
			{name: "wl-copy"},
			{name: "xclip", args: []string{"-selection", "clipboard"}},
			{name: "xsel", args: []string{"--clipboard", "--input"}},
		}
	default:
		return nil
	}
}

func execRunner(ctx context.Context, name string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.Run()
}

// Copy copies text and returns the name of the method that succeeded
func (c *Clipboard) Copy(ctx context.Context, text string) (string, error) {
	var lastErr error
	for _, cmd := range c.commands {
		if _, err := c.lookPath(cmd.name); err != nil {
			continue
		}
		runCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.run(runCtx, cmd.name, cmd.args, text)
		cancel()
		if err == nil {
			return cmd.name, nil
		}
		lastErr = fmt.Errorf("%s failed: %w", cmd.name, err)
	}

	if c.osc52 != nil {
		c.osc52.Copy(text)
		return MethodOSC52, nil
	}
	if lastErr != nil {
		return "", fmt.Errorf("clipboard utilities available but failed: %w", lastErr)
	}
	return "", NewClipboardError()
}

// Available reports whether any copy method can be attempted
func (c *Clipboard) Available() bool {
	if c.osc52 != nil {
		return true
	}
	for _, cmd := range c.commands {
		if _, err := c.lookPath(cmd.name); err == nil {
			return true
		}
	}
	return false
}

// CopyWithFallback copies text and returns a status message for display
func (c *Clipboard) CopyWithFallback(ctx context.Context, text string) (string, error) {
	method, err := c.Copy(ctx, text)
	if err != nil {
		var clipErr *ClipboardError
		if errors.As(err, &clipErr) {
			return "", err
		}
		return "", fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	if method == MethodOSC52 {
		return "Copied to clipboard (terminal)", nil
	}
	return "Copied to clipboard!", nil
}

// GetInstallInstructions returns installation instructions for clipboard utilities
func GetInstallInstructions() string {
	switch runtime.GOOS {
	case "linux":
		return "Install a clipboard utility:\n" +
			"  • Ubuntu/Debian: sudo apt install xclip\n" +
			"  • Fedora/RHEL: sudo dnf install xclip\n" +
			"  • Arch: sudo pacman -S xclip\n" +
			"  • For Wayland: install wl-clipboard"
	case "darwin":
		return "pbcopy should be available by default on macOS"
	case "windows":
		return "clip should be available by default on Windows"
	default:
		return fmt.Sprintf("Clipboard not supported on %s", runtime.GOOS)
	}
}
