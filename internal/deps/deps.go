// Package deps reports which external helper programs are installed.
package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program voicewin can use.
type Tool struct {
	Name        string
	VersionArgs []string
	Purpose     string
	// Required tools are needed by the default configuration.
	Required bool
}

var Tools = []Tool{
	{Name: "pw-record", VersionArgs: []string{"--version"}, Purpose: "microphone capture (pipewire backend)", Required: true},
	{Name: "wl-copy", VersionArgs: []string{"--version"}, Purpose: "clipboard on Wayland"},
	{Name: "wtype", Purpose: "typing and paste shortcut on Wayland"},
	{Name: "ydotool", Purpose: "typing and paste shortcut via uinput"},
	{Name: "notify-send", VersionArgs: []string{"--version"}, Purpose: "desktop notifications"},
}

// Check looks up a program and, when it has a version flag, its first output line.
func Check(t Tool) Status {
	return check(exec.LookPath, t)
}

func check(lookPath func(string) (string, error), t Tool) Status {
	path, err := lookPath(t.Name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if len(t.VersionArgs) == 0 {
		return status
	}

	output, err := exec.Command(path, t.VersionArgs...).Output()
	if err == nil {
		status.Version = firstLine(string(output))
	}
	return status
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// CheckAll returns the status of every known tool, in Tools order.
func CheckAll() []Status {
	out := make([]Status, len(Tools))
	for i, t := range Tools {
		out[i] = Check(t)
	}
	return out
}
