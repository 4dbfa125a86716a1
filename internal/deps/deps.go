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

// Tool is an external program hotdictate shells out to.
type Tool struct {
	Name        string
	Purpose     string
	VersionArgs []string
	Required    bool
}

// Check looks up name in PATH and reads its version from the first line of
// `name versionArgs...` when versionArgs is non-empty.
func Check(name string, versionArgs ...string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if len(versionArgs) == 0 {
		return status
	}

	cmd := exec.Command(path, versionArgs...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		// parse first line as version
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}

// Tools lists the programs needed for the given injection backends and
// notification type. At least one keystroke backend is needed for typing and
// pasting, so backends are marked required only when they are the sole option.
func Tools(backends []string, notifications string) []Tool {
	var tools []Tool
	for _, b := range backends {
		switch b {
		case "ydotool":
			tools = append(tools, Tool{Name: "ydotool", Purpose: "keystroke injection (needs ydotoold running)", Required: len(backends) == 1})
		case "wtype":
			tools = append(tools, Tool{Name: "wtype", Purpose: "keystroke injection on wlroots compositors", Required: len(backends) == 1})
		}
	}

	tools = append(tools,
		Tool{Name: "wl-copy", Purpose: "clipboard write (wl-clipboard)", VersionArgs: []string{"--version"}},
		Tool{Name: "wl-paste", Purpose: "clipboard read (wl-clipboard)", VersionArgs: []string{"--version"}},
	)

	if notifications == "desktop" || notifications == "" {
		tools = append(tools, Tool{Name: "notify-send", Purpose: "desktop notifications", VersionArgs: []string{"--version"}, Required: true})
	}
	return tools
}

// Result pairs a tool with its lookup status.
type Result struct {
	Tool   Tool
	Status Status
}

// CheckAll runs Check for every tool.
func CheckAll(tools []Tool) []Result {
	results := make([]Result, 0, len(tools))
	for _, t := range tools {
		results = append(results, Result{Tool: t, Status: Check(t.Name, t.VersionArgs...)})
	}
	return results
}

// AnyBackend reports whether at least one keystroke backend in results is installed.
func AnyBackend(results []Result) bool {
	for _, r := range results {
		if (r.Tool.Name == "ydotool" || r.Tool.Name == "wtype") && r.Status.Installed {
			return true
		}
	}
	return false
}
