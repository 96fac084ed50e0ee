package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Tool is an external program some part of speakstream shells out to
type Tool struct {
	Name        string
	VersionArgs []string
	Purpose     string
	Required    bool
}

// Status represents the installation status of a tool
type Status struct {
	Tool
	Installed bool
	Path      string
	Version   string
}

// Tools lists every program speakstream may run
func Tools() []Tool {
	return []Tool{
		{Name: "pw-record", VersionArgs: []string{"--version"}, Purpose: "microphone capture", Required: true},
		{Name: "wtype", Purpose: "typing on Wayland"},
		{Name: "ydotool", Purpose: "typing through uinput"},
		{Name: "notify-send", VersionArgs: []string{"--version"}, Purpose: "desktop notifications"},
		{Name: "whisper-cli", VersionArgs: []string{"--version"}, Purpose: "local transcription without cgo bindings"},
	}
}

type checker struct {
	lookPath func(string) (string, error)
	output   func(ctx context.Context, path string, args ...string) ([]byte, error)
}

func runOutput(ctx context.Context, path string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, path, args...).CombinedOutput()
}

var system = checker{lookPath: exec.LookPath, output: runOutput}

// Check reports whether tool is on PATH and, when it has a version flag, its version line
func Check(tool Tool) Status {
	return system.check(tool)
}

// CheckAll checks every entry of Tools
func CheckAll() []Status {
	var out []Status
	for _, tool := range Tools() {
		out = append(out, Check(tool))
	}
	return out
}

func (c checker) check(tool Tool) Status {
	status := Status{Tool: tool}
	path, err := c.lookPath(tool.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if len(tool.VersionArgs) == 0 {
		return status
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	output, err := c.output(ctx, path, tool.VersionArgs...)
	if err == nil {
		first, _, _ := strings.Cut(string(output), "\n")
		status.Version = strings.TrimSpace(first)
	}
	return status
}
