package deps

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeTool writes an executable script named name into a fresh PATH.
func fakeTool(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
}

func TestCheck(t *testing.T) {
	t.Run("installed with version", func(t *testing.T) {
		fakeTool(t, "wl-copy", "echo 'wl-clipboard 2.2.1'; echo 'more'")

		status := Check("wl-copy", "--version")
		if !status.Installed {
			t.Fatal("expected Installed=true")
		}
		if status.Path == "" {
			t.Error("installed but path empty")
		}
		if status.Version != "wl-clipboard 2.2.1" {
			t.Errorf("Version = %q", status.Version)
		}
	})

	t.Run("installed without version args", func(t *testing.T) {
		fakeTool(t, "wtype", "exit 1")

		status := Check("wtype")
		if !status.Installed || status.Version != "" {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("failing version command", func(t *testing.T) {
		fakeTool(t, "notify-send", "exit 3")

		status := Check("notify-send", "--version")
		if !status.Installed {
			t.Error("tool in PATH should be installed even if --version fails")
		}
		if status.Version != "" {
			t.Errorf("expected empty version, got %q", status.Version)
		}
	})

	t.Run("not installed", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())

		status := Check("ydotool")
		if status.Installed {
			t.Error("expected Installed=false when not in PATH")
		}
		if status.Path != "" {
			t.Error("expected empty path when not installed")
		}
	})
}

func TestTools(t *testing.T) {
	tests := []struct {
		name          string
		backends      []string
		notifications string
		want          map[string]bool // tool name -> required
	}{
		{
			name:          "defaults",
			backends:      []string{"ydotool", "wtype"},
			notifications: "desktop",
			want:          map[string]bool{"ydotool": false, "wtype": false, "wl-copy": false, "wl-paste": false, "notify-send": true},
		},
		{
			name:          "single backend is required",
			backends:      []string{"wtype"},
			notifications: "log",
			want:          map[string]bool{"wtype": true, "wl-copy": false, "wl-paste": false},
		},
		{
			name:          "clipboard only",
			notifications: "none",
			want:          map[string]bool{"wl-copy": false, "wl-paste": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := Tools(tt.backends, tt.notifications)
			if len(tools) != len(tt.want) {
				t.Fatalf("got %d tools, want %d: %+v", len(tools), len(tt.want), tools)
			}
			for _, tool := range tools {
				required, ok := tt.want[tool.Name]
				if !ok {
					t.Errorf("unexpected tool %s", tool.Name)
					continue
				}
				if tool.Required != required {
					t.Errorf("%s: Required = %t, want %t", tool.Name, tool.Required, required)
				}
			}
		})
	}
}

func TestCheckAllAndAnyBackend(t *testing.T) {
	fakeTool(t, "wtype", "exit 0")

	results := CheckAll(Tools([]string{"ydotool", "wtype"}, "none"))
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !AnyBackend(results) {
		t.Error("wtype is installed, AnyBackend should be true")
	}

	t.Setenv("PATH", t.TempDir())
	if AnyBackend(CheckAll(Tools([]string{"ydotool", "wtype"}, "none"))) {
		t.Error("no backend installed, AnyBackend should be false")
	}
}
