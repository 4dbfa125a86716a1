package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/hotdictate/internal/config"
	"github.com/leonardotrapani/hotdictate/internal/hotkey"
	"github.com/leonardotrapani/hotdictate/internal/language"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// AllProviders is the list of all supported providers
var AllProviders = []string{"openai", "groq", "openai-sdk", "custom"}

var providerDisplayNames = map[string]string{
	"openai":     "OpenAI (HTTP)",
	"groq":       "Groq",
	"openai-sdk": "OpenAI (go-openai SDK)",
	"custom":     "Custom endpoint",
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionAPIKey        ConfigSection = "api_key"
	SectionInjection     ConfigSection = "injection"
	SectionHotkey        ConfigSection = "hotkey"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run shows the configuration menu until the user saves or discards. cfg is
// edited in place.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return &ConfigureResult{Cancelled: true}, nil
			}
			return nil, err
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render("Configuration is invalid: " + err.Error()))
				continue
			}
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionTranscription:
			_ = editTranscription(cfg)

		case SectionAPIKey:
			_ = editAPIKey(cfg)

		case SectionInjection:
			_ = editInjection(cfg)

		case SectionHotkey:
			_ = editHotkey(cfg)

		case SectionNotifications:
			_ = editNotifications(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(fmt.Sprintf("Transcription (%s, %s)", cfg.Transcription.Provider, cfg.Transcription.Model), SectionTranscription),
		huh.NewOption(apiKeyLabel(cfg), SectionAPIKey),
		huh.NewOption(fmt.Sprintf("Injection (%s)", cfg.Injection.Mode), SectionInjection),
		huh.NewOption(hotkeyLabel(cfg), SectionHotkey),
		huh.NewOption(fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func apiKeyLabel(cfg *config.Config) string {
	if cfg.Transcription.Provider == "custom" {
		return "API Key (optional)"
	}
	if cfg.ResolveAPIKey() == "" {
		return "API Key (missing)"
	}
	return "API Key (set)"
}

func hotkeyLabel(cfg *config.Config) string {
	if !cfg.Hotkey.Enabled {
		return "Hotkey (disabled)"
	}
	return fmt.Sprintf("Hotkey (%s)", cfg.Hotkey.Chord)
}

func editTranscription(cfg *config.Config) error {
	provider := cfg.Transcription.Provider
	model := cfg.Transcription.Model
	lang := cfg.Transcription.Language
	prompt := cfg.Transcription.Prompt
	endpoint := cfg.Providers["custom"].Endpoint

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(providerOptions()...).
				Value(&provider),
			huh.NewInput().
				Title("Model").
				Description("e.g. whisper-1, whisper-large-v3-turbo").
				Value(&model).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("model is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions(lang)...).
				Filtering(true).
				Value(&lang),
			huh.NewInput().
				Title("Prompt").
				Description("Optional vocabulary hint sent with every upload").
				Value(&prompt),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Custom endpoint").
				Description("OpenAI-compatible /audio/transcriptions URL").
				Value(&endpoint),
		).WithHideFunc(func() bool { return provider != "custom" }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Provider = provider
	cfg.Transcription.Model = strings.TrimSpace(model)
	cfg.Transcription.Language = lang
	cfg.Transcription.Prompt = prompt
	if provider == "custom" {
		pc := cfg.Providers["custom"]
		pc.Endpoint = strings.TrimSpace(endpoint)
		cfg.Providers["custom"] = pc
	}
	return nil
}

func editAPIKey(cfg *config.Config) error {
	name := providerKeyName(cfg.Transcription.Provider)
	pc := cfg.Providers[name]
	key := pc.APIKey

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("API key for %s", name)).
				Description("Leave empty to read it from the environment").
				EchoMode(huh.EchoModePassword).
				Value(&key),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	pc.APIKey = strings.TrimSpace(key)
	cfg.Providers[name] = pc
	return nil
}

// providerKeyName is the [providers.<name>] table holding the key for provider.
func providerKeyName(provider string) string {
	if provider == "openai-sdk" {
		return "openai"
	}
	return provider
}

func editInjection(cfg *config.Config) error {
	mode := cfg.Injection.Mode
	backends := append([]string(nil), cfg.Injection.Backends...)
	restore := cfg.Injection.RestoreClipboard

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Mode").
				Options(
					huh.NewOption("Type the text (clipboard fallback)", "type"),
					huh.NewOption("Paste from the clipboard", "paste"),
					huh.NewOption("Copy to the clipboard only", "clipboard"),
				).
				Value(&mode),
			huh.NewMultiSelect[string]().
				Title("Keystroke backends").
				Description("Tried in order").
				Options(
					huh.NewOption("ydotool", "ydotool"),
					huh.NewOption("wtype", "wtype"),
				).
				Value(&backends),
			huh.NewConfirm().
				Title("Restore the clipboard after pasting?").
				Value(&restore),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Injection.Mode = mode
	cfg.Injection.Backends = backends
	cfg.Injection.RestoreClipboard = restore
	return nil
}

func editHotkey(cfg *config.Config) error {
	enabled := cfg.Hotkey.Enabled
	chord := cfg.Hotkey.Chord

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the global hotkey?").
				Description("X11 only; on Wayland bind `hotdictate toggle` in your compositor").
				Value(&enabled),
			huh.NewInput().
				Title("Chord").
				Description("e.g. ctrl+cmd+h, <ctrl>+<alt>+space").
				Value(&chord).
				Validate(hotkey.Validate),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Hotkey.Enabled = enabled
	cfg.Hotkey.Chord = chord
	return nil
}

func editNotifications(cfg *config.Config) error {
	kind := cfg.Notifications.Type

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notifications").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&kind),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}
	cfg.Notifications.Type = kind
	return nil
}

func providerOptions() []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(AllProviders))
	for _, p := range AllProviders {
		options = append(options, huh.NewOption(providerDisplayNames[p], p))
	}
	return options
}

// languageOptions lists Auto first, marking current.
func languageOptions(current string) []huh.Option[string] {
	current = language.Normalize(current)
	langs := language.List()
	options := make([]huh.Option[string], 0, len(langs))
	for _, lang := range langs {
		label := lang.Label()
		if lang.Code == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}
	return options
}

// summaryLines renders the settings shown before saving. API keys are never shown.
func summaryLines(cfg *config.Config) []string {
	lang := "auto-detect"
	if l, ok := language.Lookup(cfg.Transcription.Language); ok && l.Code != "" {
		lang = l.Name
	}

	keyState := "set"
	if cfg.ResolveAPIKey() == "" {
		keyState = "missing"
	}

	backends := strings.Join(cfg.Injection.Backends, " -> ")
	if backends == "" {
		backends = "none"
	}

	hk := "disabled"
	if cfg.Hotkey.Enabled {
		hk = cfg.Hotkey.Chord
	}

	return []string{
		fmt.Sprintf("Transcription: %s (%s)", cfg.Transcription.Provider, cfg.Transcription.Model),
		fmt.Sprintf("Language: %s", lang),
		fmt.Sprintf("API key: %s", keyState),
		fmt.Sprintf("Injection: %s via %s", cfg.Injection.Mode, backends),
		fmt.Sprintf("Hotkey: %s", hk),
		fmt.Sprintf("Notifications: %s", cfg.Notifications.Type),
	}
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, line := range summaryLines(cfg) {
		label, value, _ := strings.Cut(line, ": ")
		fmt.Printf("  %s %s\n", StyleLabel.Render(label+":"), value)
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
