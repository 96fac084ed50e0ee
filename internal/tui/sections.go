package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/language"
	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

func editProvider(cfg *config.Config) error {
	selected := cfg.Transcription.Provider
	var options []huh.Option[string]
	for _, id := range transcriber.IDs() {
		options = append(options, huh.NewOption(providerLabel(id), id))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription provider").
				Description("Doubao streams text while you speak; the Whisper providers transcribe after you stop").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(theme())
	if err := form.Run(); err != nil {
		return err
	}
	if selected != transcriber.ProviderWhisperLocal {
		cfg.Transcription.Provider = selected
		return nil
	}

	model := cfg.Transcription.WhisperLocal.Model
	var models []huh.Option[string]
	for _, m := range whisper.ListModels() {
		models = append(models, huh.NewOption(modelLabel(m), m.ID))
	}
	threads := strconv.Itoa(cfg.Transcription.WhisperLocal.Threads)
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Whisper model").
				Description("Download it with: speakstream model download <id>").
				Options(models...).
				Value(&model),
			huh.NewInput().
				Title("CPU threads").
				Value(&threads).
				Validate(validateNonNegativeInt),
		),
	).WithTheme(theme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Transcription.Provider = selected
	cfg.Transcription.WhisperLocal.Model = model
	cfg.Transcription.WhisperLocal.Threads, _ = strconv.Atoi(threads)
	return nil
}

func editCredentials(cfg *config.Config) error {
	switch cfg.Transcription.Provider {
	case transcriber.ProviderDoubao:
		d := cfg.Transcription.Doubao
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("App ID").Value(&d.AppID),
				huh.NewInput().
					Title("Access token").
					Description("Leave empty to use DOUBAO_ACCESS_TOKEN").
					EchoMode(huh.EchoModePassword).
					Value(&d.AccessToken),
				huh.NewInput().
					Title("Secret key").
					Description("Optional; signs requests with HMAC-SHA256").
					EchoMode(huh.EchoModePassword).
					Value(&d.SecretKey),
				huh.NewInput().Title("Endpoint").Value(&d.Endpoint),
				huh.NewInput().Title("Resource ID").Value(&d.ResourceID),
			),
		).WithTheme(theme())
		if err := form.Run(); err != nil {
			return err
		}
		cfg.Transcription.Doubao = d

	case transcriber.ProviderWhisperAPI:
		w := cfg.Transcription.WhisperAPI
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("API key").
					Description("Leave empty to use OPENAI_API_KEY").
					EchoMode(huh.EchoModePassword).
					Value(&w.APIKey),
				huh.NewInput().
					Title("Base URL").
					Description("Any OpenAI-compatible transcription endpoint").
					Value(&w.BaseURL),
				huh.NewInput().Title("Model").Value(&w.Model),
			),
		).WithTheme(theme())
		if err := form.Run(); err != nil {
			return err
		}
		cfg.Transcription.WhisperAPI = w

	default:
		fmt.Println(StyleMuted.Render("Local transcription needs no credentials."))
		waitForEnter()
	}
	return nil
}

func editLanguage(cfg *config.Config) error {
	selected := language.Normalize(cfg.Transcription.Language)
	options := []huh.Option[string]{huh.NewOption(language.Label(language.Auto), language.Auto)}
	for _, lang := range language.List() {
		options = append(options, huh.NewOption(language.Label(lang.Code), lang.Code))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Spoken language").
				Options(options...).
				Height(12).
				Value(&selected),
		),
	).WithTheme(theme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Transcription.Language = selected
	return nil
}

func editInjection(cfg *config.Config) error {
	backends := append([]string(nil), cfg.Injection.Backends...)
	live := cfg.Injection.Live

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Injection backends").
				Description("Tried in order until one succeeds").
				Options(
					huh.NewOption("wtype (Wayland virtual keyboard)", "wtype"),
					huh.NewOption("ydotool (uinput, needs ydotoold)", "ydotool"),
					huh.NewOption("clipboard (paste it yourself)", "clipboard"),
				).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return fmt.Errorf("select at least one backend")
					}
					return nil
				}).
				Value(&backends),
			huh.NewConfirm().
				Title("Type while speaking?").
				Description("Live mode types interim text and corrects it as the transcript changes").
				Value(&live),
		),
	).WithTheme(theme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Injection.Backends = orderBackends(backends)
	cfg.Injection.Live = live
	return nil
}

func editLLM(cfg *config.Config) error {
	l := cfg.LLM
	var providers []huh.Option[string]
	for _, p := range llm.Providers() {
		providers = append(providers, huh.NewOption(p, p))
	}
	modes := []huh.Option[string]{
		huh.NewOption("General writing", string(llm.ModeGeneral)),
		huh.NewOption("Code and commands", string(llm.ModeCode)),
		huh.NewOption("Meeting notes", string(llm.ModeMeeting)),
	}
	var options []string
	pp := l.PostProcessing
	for _, o := range []struct {
		on   bool
		name string
	}{
		{pp.RemoveStutters, "stutters"},
		{pp.AddPunctuation, "punctuation"},
		{pp.FixGrammar, "grammar"},
		{pp.RemoveFillerWords, "fillers"},
	} {
		if o.on {
			options = append(options, o.name)
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Clean up transcripts with an LLM?").
				Description("Only used when text is delivered after you stop speaking").
				Value(&l.Enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Provider").Options(providers...).Value(&l.Provider),
			huh.NewInput().
				Title("API key").
				Description("Leave empty to use the provider's environment variable").
				EchoMode(huh.EchoModePassword).
				Value(&l.APIKey),
			huh.NewInput().Title("Model").Description("Empty for the provider default").Value(&l.Model),
			huh.NewInput().Title("Base URL").Description("Required for custom").Value(&l.BaseURL),
		).WithHideFunc(func() bool { return !l.Enabled }),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Mode").Options(modes...).Value(&l.Mode),
			huh.NewMultiSelect[string]().
				Title("Fix").
				Options(
					huh.NewOption("Remove stutters", "stutters"),
					huh.NewOption("Add punctuation", "punctuation"),
					huh.NewOption("Fix grammar", "grammar"),
					huh.NewOption("Remove filler words", "fillers"),
				).
				Value(&options),
		).WithHideFunc(func() bool { return !l.Enabled }),
	).WithTheme(theme())
	if err := form.Run(); err != nil {
		return err
	}

	l.PostProcessing = config.LLMPostProcessingConfig{
		RemoveStutters:    contains(options, "stutters"),
		AddPunctuation:    contains(options, "punctuation"),
		FixGrammar:        contains(options, "grammar"),
		RemoveFillerWords: contains(options, "fillers"),
	}
	cfg.LLM = l
	return nil
}

func editKeywords(cfg *config.Config) error {
	text := formatKeywords(cfg.Keywords)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Keywords").
				Description("Names and jargon to spell exactly, separated by commas or new lines").
				Value(&text),
		),
	).WithTheme(theme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Keywords = parseKeywords(text)
	return nil
}

func editNotifications(cfg *config.Config) error {
	n := cfg.Notifications
	if n.Type == "" {
		n.Type = "desktop"
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Show notifications?").Value(&n.Enabled),
			huh.NewSelect[string]().
				Title("Notification type").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
				).
				Value(&n.Type),
		),
	).WithTheme(theme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Notifications = n
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number, 0 for automatic")
	}
	return nil
}
