package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leonardotrapani/hotdictate/internal/bus"
	"github.com/leonardotrapani/hotdictate/internal/config"
	"github.com/leonardotrapani/hotdictate/internal/daemon"
	"github.com/leonardotrapani/hotdictate/internal/deps"
	"github.com/leonardotrapani/hotdictate/internal/injection"
	"github.com/leonardotrapani/hotdictate/internal/logging"
	"github.com/leonardotrapani/hotdictate/internal/recording"
	"github.com/leonardotrapani/hotdictate/internal/tui"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hotdictate",
		Short:        "Toggle-to-dictate voice typing for Linux desktops",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/hotdictate/config.toml)")

	root.AddCommand(
		serveCmd(),
		sendCmd("toggle", "Toggle recording on/off", bus.CmdToggle),
		sendCmd("status", "Get current recording status", bus.CmdStatus),
		sendCmd("version", "Get protocol version", bus.CmdVersion),
		sendCmd("stop", "Stop the daemon", bus.CmdQuit),
		configureCmd(),
		doctorCmd(),
		devicesCmd(),
	)
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := manager.GetConfig()

			_, cleanup, err := logging.Setup(cfg.ToLoggingConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cfg.CheckAPIKey(); err != nil {
				return err
			}

			zap.S().Infof("serve: using config %s", manager.Path())
			d, err := daemon.New(manager, daemon.Deps{})
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func sendCmd(use, short string, command byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(command)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration for hotdictate.
This will guide you through setting up:
- The transcription provider, model, language and API key
- Text injection mode and keystroke backends
- The global hotkey and notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	path, err := config.ResolvePath(configPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := config.Save(path, result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()
	showNextSteps(result.Config, path)
	return nil
}

func showNextSteps(cfg *config.Config, path string) {
	serviceRunning := false
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "hotdictate.service").Run(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	step := 1
	for _, b := range cfg.Injection.Backends {
		if b == "ydotool" {
			fmt.Printf("%d. Ensure ydotoold is running\n", step)
			step++
			break
		}
	}
	if serviceRunning {
		fmt.Println(tui.StyleMuted.Render(fmt.Sprintf("%d. Transcription and injection changes apply on the next recording", step)))
	} else {
		fmt.Printf("%d. Start the daemon: hotdictate serve\n", step)
	}
	step++
	fmt.Printf("%d. Test voice input: hotdictate toggle\n", step)
	fmt.Println()
	fmt.Printf("Config file location: %s\n", path)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, clipboard access and API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runDoctor(cmd, cfg)
		},
	}
}

func runDoctor(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	problems := 0

	results := deps.CheckAll(deps.Tools(cfg.Injection.Backends, cfg.Notifications.Type))
	for _, r := range results {
		detail := r.Tool.Purpose
		if r.Status.Installed {
			detail = r.Status.Path
			if r.Status.Version != "" {
				detail += " (" + r.Status.Version + ")"
			}
		} else if r.Tool.Required {
			problems++
		}
		fmt.Fprintln(out, tui.Status(r.Status.Installed, r.Tool.Name, detail))
	}

	if cfg.Injection.Mode != injection.ModeClipboard && len(cfg.Injection.Backends) > 0 && !deps.AnyBackend(results) {
		problems++
		fmt.Fprintln(out, tui.Status(false, "backends", "no keystroke backend installed, text will only be copied"))
	}

	if err := injection.CheckClipboardAvailable(); err != nil {
		problems++
		fmt.Fprintln(out, tui.Status(false, "clipboard", err.Error()))
	} else {
		fmt.Fprintln(out, tui.Status(true, "clipboard", "available"))
	}

	if err := cfg.CheckAPIKey(); err != nil {
		problems++
		fmt.Fprintln(out, tui.Status(false, "api key", err.Error()))
	} else {
		fmt.Fprintln(out, tui.Status(true, "api key", cfg.Transcription.Provider))
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	return nil
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := recording.ListInputDevices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d ch, %.0f Hz)\n", marker, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
			}
			return nil
		},
	}
}
