// Package tui implements the interactive configure wizard.
package tui

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"

	"github.com/voicewin/voicewin/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionKeys          ConfigSection = "keys"
	SectionHotkey        ConfigSection = "hotkey"
	SectionEnhancement   ConfigSection = "enhancement"
	SectionVAD           ConfigSection = "vad"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the configure wizard on a copy of existing (defaults when nil).
// The returned config is validated; existing is never modified.
func Run(existing *config.Config) (*ConfigureResult, error) {
	if existing == nil {
		existing = config.DefaultConfig()
	}
	cfg := cloneConfig(existing)

	var problem string
	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()
		if problem != "" {
			fmt.Println(StyleError.Render(problem))
			fmt.Println()
		}

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}
		problem = ""

		var editErr error
		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				problem = err.Error()
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
			editErr = editTranscription(cfg)
		case SectionKeys:
			editErr = editKeys(cfg)
		case SectionHotkey:
			editErr = editHotkey(cfg)
		case SectionEnhancement:
			editErr = editEnhancement(cfg)
		case SectionVAD:
			editErr = editVAD(cfg)
		case SectionNotifications:
			editErr = editNotifications(cfg)
		}
		// esc inside a section returns to the menu
		if editErr != nil && !errors.Is(editErr, huh.ErrUserAborted) {
			problem = editErr.Error()
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(transcriptionLabel(cfg), SectionTranscription),
		huh.NewOption("API Keys", SectionKeys),
		huh.NewOption(hotkeyLabel(cfg), SectionHotkey),
		huh.NewOption(enabledLabel("Enhancement", cfg.Enhancement.Enabled), SectionEnhancement),
		huh.NewOption(enabledLabel("Voice Activity Detection", cfg.VAD.Enabled), SectionVAD),
		huh.NewOption(enabledLabel("Notifications", cfg.Notifications.Enabled), SectionNotifications),
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

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, line := range summaryLines(cfg) {
		fmt.Printf("  %s %s\n", StyleLabel.Render(line[0]+":"), line[1])
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

func cloneConfig(src *config.Config) *config.Config {
	cfg := *src
	cfg.Providers = make(map[string]config.ProviderConfig, len(src.Providers))
	for name, p := range src.Providers {
		cfg.Providers[name] = p
	}
	cfg.Injection.Backends = slices.Clone(src.Injection.Backends)
	return &cfg
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
