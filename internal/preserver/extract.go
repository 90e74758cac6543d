package preserver

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/chunker"
)

const (
	briefUtterance      = 20
	verboseUtterance    = 50
	minNarrationChars   = 100
	descriptiveAdverbs  = 5
	minThemeOccurrences = 2
	minKeyTermCount     = 2
)

var (
	reQuoted  = regexp.MustCompile(`["“][^"”]*["”]`)
	reKeyTerm = regexp.MustCompile(`\b\p{Lu}\p{L}+(?:[ \t]+\p{Lu}\p{L}+)+\b`)
	reAdverb  = regexp.MustCompile(`^\p{L}{3,}ly$`)
)

// rules is a Lexicon compiled into lookup sets and attribution patterns.
type rules struct {
	informal    map[string]struct{}
	formal      map[string]struct{}
	tones       map[internal.Tone]map[string]struct{}
	themeOrder  []string
	themes      map[string]map[string]struct{}
	interiority map[string]struct{}
	nonNames    map[string]struct{}
	first       map[string]struct{}
	second      map[string]struct{}
	third       map[string]struct{}

	// attribution patterns, highest precedence first. Group 1 is the
	// utterance and group 2 the speaker unless swapped.
	attribution []*regexp.Regexp
	swapped     []bool
}

func compile(lex Lexicon) *rules {
	r := &rules{
		informal:    wordSet(lex.InformalWords),
		formal:      wordSet(lex.FormalWords),
		tones:       make(map[internal.Tone]map[string]struct{}, len(lex.Tone)),
		themeOrder:  append([]string(nil), lex.ThemeOrder...),
		themes:      make(map[string]map[string]struct{}, len(lex.Themes)),
		interiority: wordSet(lex.InteriorityVerbs),
		nonNames:    wordSet(lex.NonNames),
		first:       wordSet(lex.FirstPerson),
		second:      wordSet(lex.SecondPerson),
		third:       wordSet(lex.ThirdPerson),
	}
	for t, words := range lex.Tone {
		r.tones[t] = wordSet(words)
	}
	for name, words := range lex.Themes {
		r.themes[name] = wordSet(words)
	}

	quoted := make([]string, len(lex.ReportingVerbs))
	for i, v := range lex.ReportingVerbs {
		quoted[i] = regexp.QuoteMeta(v)
	}
	verbs := `(?:` + strings.Join(quoted, "|") + `)`
	name := `(\p{Lu}\p{Ll}+)`

	// Name said, "..."
	nameFirst := regexp.MustCompile(`\b` + name + `[ \t]+` + verbs + `[ \t]*[,:]?[ \t]*["“]([^"”]+)["”]`)
	// "...," Name said
	quoteThenName := regexp.MustCompile(`["“]([^"”]*,)["”][ \t]+` + name + `[ \t]+` + verbs + `\b`)
	// "...?" asked Name
	quoteThenVerb := regexp.MustCompile(`["“]([^"”]*[,?!])["”][ \t]+` + verbs + `[ \t]+` + name + `\b`)

	r.attribution = []*regexp.Regexp{nameFirst, quoteThenName, quoteThenVerb}
	r.swapped = []bool{true, false, false}
	return r
}

func (r *rules) extract(text string) internal.ChunkContext {
	sentences := chunker.Sentences(text)
	if len(sentences) > MaxPreviousSentences {
		sentences = sentences[len(sentences)-MaxPreviousSentences:]
	}
	words := tokenize(text)
	return internal.ChunkContext{
		PreviousSentences: sentences,
		CharacterVoices:   r.characterVoices(text),
		NarratorVoice:     r.narratorVoice(text),
		Themes:            r.detectThemes(words),
		KeyTerms:          keyTerms(text),
	}
}

// characterVoices attributes quoted speech to named speakers and summarises
// each speaker with a small trait vocabulary. Keys are lower-case names.
func (r *rules) characterVoices(text string) map[string]string {
	utterances := make(map[string][]string)
	var speakers []string
	claimed := make(map[int]struct{})

	for pi, re := range r.attribution {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			quoteGroup, nameGroup := 1, 2
			if r.swapped[pi] {
				quoteGroup, nameGroup = 2, 1
			}
			qStart := m[2*quoteGroup]
			if _, ok := claimed[qStart]; ok {
				continue
			}
			speaker := text[m[2*nameGroup]:m[2*nameGroup+1]]
			key := strings.ToLower(speaker)
			if _, skip := r.nonNames[key]; skip {
				continue
			}
			claimed[qStart] = struct{}{}
			if _, ok := utterances[key]; !ok {
				speakers = append(speakers, key)
			}
			utterances[key] = append(utterances[key], text[qStart:m[2*quoteGroup+1]])
		}
	}
	if len(speakers) == 0 {
		return nil
	}

	voices := make(map[string]string, len(speakers))
	for _, s := range speakers {
		voices[s] = describeVoice(utterances[s])
	}
	return voices
}

func describeVoice(lines []string) string {
	var total int
	var asks, exclaims bool
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(l), ","))
		total += utf8.RuneCountInString(l)
		asks = asks || strings.Contains(l, "?")
		exclaims = exclaims || strings.Contains(l, "!")
	}
	mean := float64(total) / float64(len(lines))

	var traits []string
	switch {
	case mean < briefUtterance:
		traits = append(traits, "brief")
	case mean > verboseUtterance:
		traits = append(traits, "verbose")
	}
	if asks {
		traits = append(traits, "inquisitive")
	}
	if exclaims {
		traits = append(traits, "expressive")
	}
	if len(traits) == 0 {
		return "measured"
	}
	return strings.Join(traits, ", ")
}

// narratorVoice describes the narration with dialogue stripped. Too little
// narration yields "".
func (r *rules) narratorVoice(text string) string {
	narration := strings.TrimSpace(reQuoted.ReplaceAllString(text, " "))
	if utf8.RuneCountInString(narration) < minNarrationChars {
		return ""
	}

	var first, second, third, adverbs int
	introspective := false
	for _, w := range tokenize(narration) {
		if _, ok := r.first[w]; ok {
			first++
		}
		if _, ok := r.second[w]; ok {
			second++
		}
		if _, ok := r.third[w]; ok {
			third++
		}
		if _, ok := r.interiority[w]; ok {
			introspective = true
		}
		if reAdverb.MatchString(w) {
			adverbs++
		}
	}

	person := "third-person"
	switch {
	case first > 0 && first >= second && first >= third:
		person = "first-person"
	case second > third:
		person = "second-person"
	}
	traits := []string{person}
	if introspective {
		traits = append(traits, "introspective")
	}
	if adverbs > descriptiveAdverbs {
		traits = append(traits, "descriptive")
	}
	return strings.Join(traits, ", ")
}

// detectThemes counts keyword hits per category and keeps the categories
// seen at least twice, most frequent first.
func (r *rules) detectThemes(words []string) []string {
	counts := make(map[string]int)
	for _, w := range words {
		for _, theme := range r.themeOrder {
			if _, ok := r.themes[theme][w]; ok {
				counts[theme]++
			}
		}
	}
	var found []string
	for _, theme := range r.themeOrder {
		if counts[theme] >= minThemeOccurrences {
			found = append(found, theme)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return counts[found[i]] > counts[found[j]]
	})
	return found
}

// keyTerms returns capitalised multi-word spans repeated at least twice
// (case-insensitive), most frequent first, capped at MaxKeyTerms.
func keyTerms(text string) []string {
	type term struct {
		display string
		count   int
		first   int
	}
	seen := make(map[string]*term)
	var order []*term
	for i, m := range reKeyTerm.FindAllString(text, -1) {
		k := strings.ToLower(m)
		if t, ok := seen[k]; ok {
			t.count++
			continue
		}
		t := &term{display: m, count: 1, first: i}
		seen[k] = t
		order = append(order, t)
	}

	var ranked []*term
	for _, t := range order {
		if t.count >= minKeyTermCount {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})
	if len(ranked) > MaxKeyTerms {
		ranked = ranked[:MaxKeyTerms]
	}
	out := make([]string, len(ranked))
	for i, t := range ranked {
		out[i] = t.display
	}
	return out
}
