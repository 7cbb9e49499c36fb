package injection

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"
)

// clipboardBackend copies the text and sends a paste shortcut, like a user pressing Ctrl+V.
type clipboardBackend struct {
	write func(string) error
	paste func(ctx context.Context) error
}

func NewClipboardBackend() Backend {
	return &clipboardBackend{write: clipboard.WriteAll, paste: sendPasteShortcut}
}

func (c *clipboardBackend) Name() string {
	return "clipboard"
}

func (c *clipboardBackend) Available() error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard, xclip or xsel)")
	}
	return nil
}

func (c *clipboardBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.write(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}

	// give the compositor a moment to pick up the new selection
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := c.paste(ctx); err != nil {
		return fmt.Errorf("send paste shortcut: %w", err)
	}
	return nil
}

func sendPasteShortcut(ctx context.Context) error {
	if _, err := exec.LookPath("wtype"); err == nil {
		return exec.CommandContext(ctx, "wtype", "-M", "ctrl", "-k", "v", "-m", "ctrl").Run()
	}
	if _, err := exec.LookPath("ydotool"); err == nil {
		// KEY_LEFTCTRL=29, KEY_V=47
		return exec.CommandContext(ctx, "ydotool", "key", "29:1", "47:1", "47:0", "29:0").Run()
	}
	return fmt.Errorf("neither wtype nor ydotool found")
}
