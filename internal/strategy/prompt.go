package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valpere/humanizer/internal/placeholder"
)

var levelGuidance = map[int]string{
	1: "Make minimal edits: fix stiff phrasing only, keep almost every sentence as it is.",
	2: "Make light edits: smooth transitions and vary a few sentence openings.",
	3: "Rewrite moderately: vary sentence length and rhythm, replace generic wording.",
	4: "Rewrite substantially: restructure sentences freely while keeping every fact.",
	5: "Rewrite boldly: make the passage sound unmistakably human and conversational while keeping every fact.",
}

// buildSystemPrompt turns the chunk context into rewrite instructions.
func buildSystemPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("You are an experienced human editor. Rewrite the passage you receive so it reads naturally, as if written by a person.\n")
	sb.WriteString(levelGuidance[req.Level])
	sb.WriteString("\nOnly respond with the rewritten passage, nothing else. No explanations, no quotes, no headings.")

	if strings.Contains(req.Text, "[PH") {
		sb.WriteString(" ")
		sb.WriteString(placeholder.InstructionHint())
	}

	c := req.Context
	if p := c.StyleProfile; p != nil {
		sb.WriteString("\n\nDOCUMENT STYLE (match it):\n")
		sb.WriteString(fmt.Sprintf("  tone: %s\n", p.Tone))
		sb.WriteString(fmt.Sprintf("  formality: %d/100\n", p.Formality))
		sb.WriteString(fmt.Sprintf("  vocabulary complexity: %d/100\n", p.VocabularyComplexity))
		sb.WriteString(fmt.Sprintf("  average sentence length: %.1f words\n", p.AverageSentenceLength))
		if len(p.CommonPhrases) > 0 {
			sb.WriteString(fmt.Sprintf("  recurring phrases: %s\n", strings.Join(p.CommonPhrases, "; ")))
		}
	}

	if len(c.CharacterVoices) > 0 {
		names := make([]string, 0, len(c.CharacterVoices))
		for name := range c.CharacterVoices {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("\n\nCHARACTER VOICES (keep them consistent):\n")
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", name, c.CharacterVoices[name]))
		}
	}
	if c.NarratorVoice != "" {
		sb.WriteString(fmt.Sprintf("\nNARRATOR: %s\n", c.NarratorVoice))
	}
	if len(c.Themes) > 0 {
		sb.WriteString(fmt.Sprintf("\nTHEMES: %s\n", strings.Join(c.Themes, ", ")))
	}
	if len(c.KeyTerms) > 0 {
		sb.WriteString(fmt.Sprintf("\nKEY TERMS (keep these exact spellings): %s\n", strings.Join(c.KeyTerms, ", ")))
	}
	if len(c.PreviousSentences) > 0 {
		sb.WriteString(fmt.Sprintf("\nCONTEXT (previous passage for continuity, do NOT rewrite this):\n...%s", strings.Join(c.PreviousSentences, " ")))
	}

	return sb.String()
}
