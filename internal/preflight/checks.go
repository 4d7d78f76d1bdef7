// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/huiping192/video-analytics/internal/download"
)

// minInputSize is the smallest input file worth analyzing.
const minInputSize = 1024

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks. ffprobe is required; ffmpeg missing
// is only a warning since analysis never invokes it directly.
func RunAll(ffprobePath, ffmpegPath string, inputs []string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 2+len(inputs)),
		Passed: true,
	}

	probeCheck := checkBinary("ffprobe", ffprobePath, false)
	result.Checks = append(result.Checks, probeCheck)
	if !probeCheck.Passed {
		result.Passed = false
	}

	result.Checks = append(result.Checks, checkBinary("ffmpeg", ffmpegPath, true))

	for _, input := range inputs {
		inputCheck := checkInput(input)
		result.Checks = append(result.Checks, inputCheck)
		if !inputCheck.Passed {
			result.Passed = false
		}
	}

	return result
}

// checkBinary verifies a tool runs and extracts its version banner.
func checkBinary(name, path string, warnOnly bool) Check {
	cmd := exec.Command(path, "-version")
	output, err := cmd.Output()

	if err != nil {
		return Check{
			Name:    name,
			Passed:  warnOnly,
			Warning: warnOnly,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	// "ffprobe version 6.1 Copyright ..."
	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		parts := strings.Fields(lines[0])
		if len(parts) >= 3 {
			version = parts[2]
		}
	}

	return Check{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("found at %s (version %s)", path, version),
	}
}

// checkInput validates one input path. Remote URLs pass here and are
// validated at download time.
func checkInput(input string) Check {
	name := "input " + input

	if download.IsRemoteURL(input) {
		return Check{Name: name, Passed: true, Message: "remote URL, validated at download time"}
	}

	info, err := os.Stat(input)
	if err != nil {
		return Check{Name: name, Message: fmt.Sprintf("not accessible: %v", err)}
	}
	if info.IsDir() {
		return Check{Name: name, Message: "is a directory"}
	}
	if info.Size() < minInputSize {
		return Check{Name: name, Message: fmt.Sprintf("too small (%d bytes)", info.Size())}
	}

	return Check{Name: name, Passed: true, Message: fmt.Sprintf("%d bytes", info.Size())}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch {
	case name == "ffprobe" || name == "ffmpeg":
		return "install ffmpeg (apt install ffmpeg / brew install ffmpeg)"
	case strings.HasPrefix(name, "input "):
		return "check the path and file permissions"
	default:
		return "see documentation"
	}
}
