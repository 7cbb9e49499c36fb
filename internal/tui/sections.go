package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/voicewin/voicewin/internal/config"
	"github.com/voicewin/voicewin/internal/hotkey"
	"github.com/voicewin/voicewin/internal/keyhook"
	"github.com/voicewin/voicewin/internal/language"
	"github.com/voicewin/voicewin/internal/provider"
)

// keyLookup resolves hotkey names while validating input.
var keyLookup hotkey.KeyLookup = keyhook.Lookup

func editTranscription(cfg *config.Config) error {
	providerName := cfg.Transcription.Provider
	lang := cfg.Transcription.Language
	model := cfg.Model(provider.BaseProviderName(providerName))

	var options []huh.Option[string]
	for _, name := range provider.TranscriptionProviders() {
		options = append(options, huh.NewOption(transcriptionOptionLabel(name), name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Provider").
				Options(options...).
				Value(&providerName),
			huh.NewInput().
				Title("Language").
				Description(`"multi" for auto-detect, or a tag like "en", "pt-BR"`).
				Suggestions(language.Codes()).
				Validate(validateLanguage).
				Value(&lang),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	base := provider.BaseProviderName(providerName)
	if providerName != cfg.Transcription.Provider {
		model = cfg.Model(base)
	}
	modelForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Model").
				Description("Default: " + provider.DefaultTranscriptionModel(providerName)).
				Value(&model),
		),
	).WithTheme(getTheme())
	if err := modelForm.Run(); err != nil {
		return err
	}

	cfg.Transcription.Provider = providerName
	cfg.Transcription.Language = strings.TrimSpace(lang)
	setModel(cfg, base, strings.TrimSpace(model))
	return nil
}

func editKeys(cfg *config.Config) error {
	names := provider.List()
	keys := make([]string, len(names))
	fields := make([]huh.Field, len(names))
	for i, name := range names {
		keys[i] = cfg.Providers[name].APIKey
		p := provider.Get(name)
		fields[i] = huh.NewInput().
			Title(name+" API key").
			Description(keyDescription(p)).
			EchoMode(huh.EchoModePassword).
			Validate(keyValidator(p)).
			Value(&keys[i])
	}

	form := huh.NewForm(huh.NewGroup(fields...)).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	for i, name := range names {
		setAPIKey(cfg, name, strings.TrimSpace(keys[i]))
	}
	return nil
}

func editHotkey(cfg *config.Config) error {
	enabled := cfg.Hotkey.Enabled
	key := cfg.Hotkey.Key
	mode := cfg.Hotkey.Mode
	if mode == "" {
		mode = string(hotkey.ModeHold)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable global hotkey?").
				Description("Without it, control voicewin with `voicewin toggle`").
				Value(&enabled),
			huh.NewInput().
				Title("Key").
				Description(`e.g. "ralt", "f9", "ctrl+shift+space"`).
				Validate(validateHotkey).
				Value(&key),
			huh.NewSelect[string]().
				Title("Mode").
				Options(
					huh.NewOption("Hold (push-to-talk)", string(hotkey.ModeHold)),
					huh.NewOption("Toggle (press to start, press to stop)", string(hotkey.ModeToggle)),
					huh.NewOption("Hybrid (tap to latch, hold to talk)", string(hotkey.ModeHybrid)),
				).
				Value(&mode),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Hotkey.Enabled = enabled
	cfg.Hotkey.Key = strings.TrimSpace(key)
	cfg.Hotkey.Mode = mode
	return nil
}

func editEnhancement(cfg *config.Config) error {
	enabled := cfg.Enhancement.Enabled
	enableForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enhance transcripts with an LLM?").
				Description("Fixes punctuation and removes filler words before pasting").
				Value(&enabled),
		),
	).WithTheme(getTheme())
	if err := enableForm.Run(); err != nil {
		return err
	}
	cfg.Enhancement.Enabled = enabled
	if !enabled {
		return nil
	}

	providerName := cfg.Enhancement.Provider
	var options []huh.Option[string]
	for _, name := range provider.ListWithLLM() {
		options = append(options, huh.NewOption(name, name))
	}
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Enhancement Provider").
				Options(options...).
				Value(&providerName),
		),
	).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	model := cfg.Enhancement.Model
	if providerName != cfg.Enhancement.Provider || model == "" {
		model = provider.Get(providerName).LLMModel
	}
	prompt := cfg.Enhancement.Prompt
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Model").
				Validate(notEmpty("model")).
				Value(&model),
			huh.NewText().
				Title("Prompt").
				Lines(6).
				Value(&prompt),
		),
	).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	cfg.Enhancement.Provider = providerName
	cfg.Enhancement.Model = strings.TrimSpace(model)
	cfg.Enhancement.Prompt = prompt
	return nil
}

func editVAD(cfg *config.Config) error {
	enabled := cfg.VAD.Enabled
	threshold := strconv.FormatFloat(float64(cfg.VAD.Threshold), 'f', -1, 32)
	silence := strconv.Itoa(cfg.VAD.MinSilenceMs)
	timeout := strconv.Itoa(cfg.VAD.StreamingSilenceTimeoutS)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable voice activity detection?").
				Description("Trims silence before upload and stops idle streaming sessions").
				Value(&enabled),
			huh.NewInput().
				Title("Speech threshold").
				Description("0 to 1, higher ignores more background noise").
				Validate(validateThreshold).
				Value(&threshold),
			huh.NewInput().
				Title("Minimum silence (ms)").
				Validate(validateNonNegative).
				Value(&silence),
			huh.NewInput().
				Title("Streaming auto-stop after silence (s)").
				Description("0 disables auto-stop").
				Validate(validateNonNegative).
				Value(&timeout),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	t, _ := strconv.ParseFloat(strings.TrimSpace(threshold), 32)
	ms, _ := strconv.Atoi(strings.TrimSpace(silence))
	secs, _ := strconv.Atoi(strings.TrimSpace(timeout))
	cfg.VAD.Enabled = enabled
	cfg.VAD.Threshold = float32(t)
	cfg.VAD.MinSilenceMs = ms
	cfg.VAD.StreamingSilenceTimeoutS = secs
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Show recording status changes and errors").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	return nil
}

func keyDescription(p *provider.Provider) string {
	desc := "Leave empty to use $" + p.EnvVar
	if p.KeyPrefix != "" {
		desc = fmt.Sprintf("Starts with %q. %s", p.KeyPrefix, desc)
	}
	return desc
}

func setAPIKey(cfg *config.Config, name, key string) {
	p := cfg.Providers[name]
	p.APIKey = key
	storeProvider(cfg, name, p)
}

func setModel(cfg *config.Config, name, model string) {
	p := cfg.Providers[name]
	p.Model = model
	storeProvider(cfg, name, p)
}

// storeProvider drops entries with nothing set so the saved file stays small.
func storeProvider(cfg *config.Config, name string, p config.ProviderConfig) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	if p == (config.ProviderConfig{}) {
		delete(cfg.Providers, name)
		return
	}
	cfg.Providers[name] = p
}
