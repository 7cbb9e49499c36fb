package injection

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

type ydotoolBackend struct{}

func NewYdotoolBackend() Backend {
	return &ydotoolBackend{}
}

func (y *ydotoolBackend) Name() string {
	return "ydotool"
}

// Available checks the binary and, when ydotoold is installed, that its socket answers.
func (y *ydotoolBackend) Available() error {
	if _, err := exec.LookPath("ydotool"); err != nil {
		return fmt.Errorf("ydotool not found: %w (install ydotool package)", err)
	}
	if _, err := exec.LookPath("ydotoold"); err != nil {
		return nil
	}

	sock := ydotoolSocket()
	if sock == "" {
		return fmt.Errorf("ydotoold socket not found, is ydotoold running?")
	}
	// newer ydotoold listens on a datagram socket, older releases on a stream socket
	conn, err := net.Dial("unixgram", sock)
	if err != nil {
		conn, err = net.DialTimeout("unix", sock, 500*time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("ydotoold not responding at %s: %w", sock, err)
	}
	return conn.Close()
}

func ydotoolSocket() string {
	candidates := []string{os.Getenv("YDOTOOL_SOCKET")}
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, ".ydotool_socket"))
	}
	candidates = append(candidates,
		filepath.Join("/run/user", strconv.Itoa(os.Getuid()), ".ydotool_socket"),
		"/tmp/.ydotool_socket",
	)
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (y *ydotoolBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ydotool", "type", "--", text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ydotool failed: %w", err)
	}
	return nil
}
