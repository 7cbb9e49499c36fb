// Package bus is the daemon's local control channel: a unix socket speaking
// one command per line, and a PID file guarding against a second daemon.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	SockName = "control.sock"
	PidName  = "voicewin.pid"
	ProtoVer = "0.2"
)

// Command bytes; a command may be followed by a space and an argument.
const (
	CmdToggle  = 't'
	CmdPress   = 'p'
	CmdRelease = 'r'
	CmdStatus  = 's'
	CmdVersion = 'v'
	CmdQuit    = 'q'
	CmdHistory = 'h'
)

// DefaultDir is ~/.cache/voicewin.
func DefaultDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "voicewin"), nil
}

func SockPath(dir string) string { return filepath.Join(dir, SockName) }
func PidPath(dir string) string  { return filepath.Join(dir, PidName) }

func Listen(dir string) (net.Listener, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	sp := SockPath(dir)
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

// SendCommand sends one command line and returns the single-line reply
// without its trailing newline.
func SendCommand(dir string, cmd byte, arg string) (string, error) {
	c, err := net.DialTimeout("unix", SockPath(dir), 2*time.Second)
	if err != nil {
		return "", fmt.Errorf("daemon not reachable (is `voicewin serve` running?): %w", err)
	}
	defer c.Close()

	line := string(cmd)
	if arg != "" {
		line += " " + arg
	}
	if _, err := c.Write([]byte(line + "\n")); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(resp, "\n"), nil
}

// ParseCommand splits a request line into its command byte and argument.
func ParseCommand(line string) (byte, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, "", false
	}
	return line[0], strings.TrimSpace(line[1:]), true
}

func CheckExistingDaemon(dir string) error {
	pidData, err := os.ReadFile(PidPath(dir))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return nil // unreadable pid file, assume stale
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil // process gone, stale pid file
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func CreatePidFile(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(PidPath(dir), []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func RemovePidFile(dir string) error {
	return os.Remove(PidPath(dir))
}
