package llm

import (
	"strings"
)

// Mode selects the register the cleanup aims for
type Mode string

const (
	ModeGeneral Mode = "general"
	ModeCode    Mode = "code"
	ModeMeeting Mode = "meeting"
)

func (m Mode) Valid() bool {
	switch m {
	case "", ModeGeneral, ModeCode, ModeMeeting:
		return true
	}
	return false
}

// PostProcessingOptions controls which fixes the model is asked for
type PostProcessingOptions struct {
	Mode              Mode
	RemoveStutters    bool
	AddPunctuation    bool
	FixGrammar        bool
	RemoveFillerWords bool
}

func (o PostProcessingOptions) fixes() []string {
	var out []string
	for _, f := range []struct {
		on   bool
		text string
	}{
		{o.RemoveStutters, "drop stutters and words or phrases repeated by accident"},
		{o.AddPunctuation, "add punctuation and sentence capitalization"},
		{o.FixGrammar, "correct grammar mistakes"},
		{o.RemoveFillerWords, "remove filler words such as um, uh, er, you know"},
	} {
		if f.on {
			out = append(out, f.text)
		}
	}
	if len(out) == 0 {
		out = append(out, "tidy the text without changing what it says")
	}
	return out
}

var modeRole = map[Mode]string{
	ModeGeneral: "You edit dictated text. The input is a raw speech recognition transcript.",
	ModeCode: "You edit dictated code comments and technical notes. The input is a raw speech recognition transcript. " +
		"Keep identifiers, function names and technical terms exactly as spoken and do not translate English technical terms.",
	ModeMeeting: "You edit dictated meeting notes. The input is a raw speech recognition transcript. " +
		"Rewrite it as clear written language and keep every point in the order it was made.",
}

var promptRules = []string{
	"answer in the language of the transcript",
	"keep the meaning; add nothing and leave nothing of substance out",
	"repair words the recognizer clearly misheard when the context makes the intended word obvious",
	"reply with the edited text only, no preamble or quotes",
	"if the transcript is empty or meaningless, reply with it unchanged",
}

// BuildSystemPrompt describes the edit for the configured mode and fixes. Keywords are
// names and jargon the model must spell as given.
func BuildSystemPrompt(opts PostProcessingOptions, keywords []string) string {
	mode := opts.Mode
	if mode == "" {
		mode = ModeGeneral
	}

	var b strings.Builder
	b.WriteString(modeRole[mode])
	b.WriteString("\n\nFixes:\n")
	for _, f := range opts.fixes() {
		b.WriteString("- " + f + "\n")
	}
	b.WriteString("\nRules:\n")
	for _, r := range promptRules {
		b.WriteString("- " + r + "\n")
	}
	if len(keywords) > 0 {
		b.WriteString("\nSpell these terms exactly: " + strings.Join(keywords, ", ") + "\n")
	}
	return b.String()
}

// BuildUserPrompt puts a custom instruction, if any, ahead of the transcript
func BuildUserPrompt(text string, customPrompt string) string {
	if customPrompt == "" {
		return text
	}
	return customPrompt + "\n\nTranscript:\n" + text
}
