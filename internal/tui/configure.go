package tui

import (
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/speakstream/internal/config"
)

type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

type section string

const (
	sectionProvider      section = "provider"
	sectionCredentials   section = "credentials"
	sectionLanguage      section = "language"
	sectionInjection     section = "injection"
	sectionLLM           section = "llm"
	sectionKeywords      section = "keywords"
	sectionNotifications section = "notifications"
	sectionSave          section = "save"
	sectionDiscard       section = "discard"
)

// Run edits a copy of cfg through a menu of forms until the user saves or discards
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	edited := *cfg

	for {
		clearScreen()
		fmt.Println(Logo())

		sec, err := selectSection(&edited)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch sec {
		case sectionSave:
			if err := edited.Validate(); err != nil {
				fmt.Println(StyleError.Render("Cannot save: " + err.Error()))
				waitForEnter()
				continue
			}
			confirmed, err := showSummary(&edited)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: &edited}, nil
			}
		case sectionDiscard:
			return &ConfigureResult{Cancelled: true}, nil
		default:
			applyEdit(&edited, editors[sec])
		}
	}
}

// applyEdit runs a section editor on a copy of cfg and keeps the copy only when every
// form of the section completed. Esc anywhere inside a section leaves cfg untouched.
func applyEdit(cfg *config.Config, edit func(*config.Config) error) bool {
	staged := *cfg
	staged.Keywords = slices.Clone(cfg.Keywords)
	staged.Injection.Backends = slices.Clone(cfg.Injection.Backends)
	if err := edit(&staged); err != nil {
		return false
	}
	*cfg = staged
	return true
}

var editors = map[section]func(*config.Config) error{
	sectionProvider:      editProvider,
	sectionCredentials:   editCredentials,
	sectionLanguage:      editLanguage,
	sectionInjection:     editInjection,
	sectionLLM:           editLLM,
	sectionKeywords:      editKeywords,
	sectionNotifications: editNotifications,
}

func selectSection(cfg *config.Config) (section, error) {
	labels := menuLabels(cfg)
	order := []section{
		sectionProvider, sectionCredentials, sectionLanguage, sectionInjection,
		sectionLLM, sectionKeywords, sectionNotifications,
	}

	var options []huh.Option[section]
	for _, sec := range order {
		options = append(options, huh.NewOption(labels[sec], sec))
	}
	options = append(options,
		huh.NewOption("Save & Exit", sectionSave),
		huh.NewOption("Discard & Exit", sectionDiscard),
	)

	var selected section
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[section]().
				Title("Configuration").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(theme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Summary"))
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
				Negative("Back").
				Value(&confirmed),
		),
	).WithTheme(theme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func waitForEnter() {
	fmt.Println(StyleMuted.Render("press enter to continue"))
	fmt.Scanln()
}

func clearScreen() {
	termenv.NewOutput(os.Stdout).ClearScreen()
}
