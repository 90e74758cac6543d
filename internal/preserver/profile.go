package preserver

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/chunker"
)

const (
	maxCommonPhrases   = 20
	minPhraseFrequency = 2
)

var (
	reWord   = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
	reLetter = regexp.MustCompile(`^\p{L}+$`)
	reVowels = regexp.MustCompile(`[aeiouy]+`)
)

func tokenize(text string) []string {
	words := reWord.FindAllString(text, -1)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// syllables estimates syllables by counting vowel clusters. Every word has
// at least one.
func syllables(word string) int {
	n := len(reVowels.FindAllStringIndex(strings.ToLower(word), -1))
	if n < 1 {
		return 1
	}
	return n
}

func (r *rules) buildProfile(text string) internal.StyleProfile {
	words := tokenize(text)
	p := internal.StyleProfile{
		Formality:            r.formality(text, words),
		VocabularyComplexity: vocabularyComplexity(words),
		CommonPhrases:        commonPhrases(text),
		Tone:                 r.tone(words),
	}
	return withSentenceStats(p, text)
}

// formality scores formal markers against informal ones on 0..100. A text
// without markers of either kind is neutral (50).
func (r *rules) formality(text string, words []string) int {
	informal := len(reContraction.FindAllStringIndex(text, -1)) +
		len(reExclamations.FindAllStringIndex(text, -1))
	formal := 0
	for _, w := range words {
		if _, ok := r.informal[w]; ok {
			informal++
		}
		if _, ok := r.formal[w]; ok {
			formal++
		}
	}
	if formal+informal == 0 {
		return 50
	}
	return int(math.Round(100 * float64(formal) / float64(formal+informal)))
}

// vocabularyComplexity blends average word length (saturating at 10 letters)
// with the share of words of three or more syllables.
func vocabularyComplexity(words []string) int {
	var letters, polysyllabic, count int
	for _, w := range words {
		if !reLetter.MatchString(w) {
			continue
		}
		count++
		letters += utf8.RuneCountInString(w)
		if syllables(w) >= 3 {
			polysyllabic++
		}
	}
	if count == 0 {
		return 0
	}
	avg := float64(letters) / float64(count)
	score := 50*math.Min(avg/10, 1) + 50*float64(polysyllabic)/float64(count)
	return clamp(int(math.Round(score)), 0, 100)
}

func withSentenceStats(p internal.StyleProfile, text string) internal.StyleProfile {
	var lengths []float64
	for _, s := range chunker.Sentences(text) {
		if n := len(reWord.FindAllString(s, -1)); n > 0 {
			lengths = append(lengths, float64(n))
		}
	}
	if len(lengths) == 0 {
		return p
	}
	var sum float64
	for _, l := range lengths {
		sum += l
	}
	mean := sum / float64(len(lengths))
	var sq float64
	for _, l := range lengths {
		sq += (l - mean) * (l - mean)
	}
	p.AverageSentenceLength = mean
	p.SentenceLengthVariation = math.Sqrt(sq / float64(len(lengths)))
	return p
}

// commonPhrases returns the most frequent word bigrams and trigrams that
// occur at least twice, ties broken by first appearance.
func commonPhrases(text string) []string {
	type phrase struct {
		text  string
		count int
		first int
	}
	seen := make(map[string]*phrase)
	order := 0
	for _, s := range chunker.Sentences(text) {
		words := tokenize(s)
		for n := 2; n <= 3; n++ {
			for i := 0; i+n <= len(words); i++ {
				key := strings.Join(words[i:i+n], " ")
				if p, ok := seen[key]; ok {
					p.count++
					continue
				}
				seen[key] = &phrase{text: key, count: 1, first: order}
				order++
			}
		}
	}

	var ranked []*phrase
	for _, p := range seen {
		if p.count >= minPhraseFrequency {
			ranked = append(ranked, p)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})
	if len(ranked) > maxCommonPhrases {
		ranked = ranked[:maxCommonPhrases]
	}
	out := make([]string, len(ranked))
	for i, p := range ranked {
		out[i] = p.text
	}
	return out
}

var toneOrder = []internal.Tone{
	internal.TonePositive, internal.ToneNegative, internal.ToneFormal, internal.ToneCasual,
}

func (r *rules) tone(words []string) internal.Tone {
	counts := make(map[internal.Tone]int, len(toneOrder))
	for _, w := range words {
		for _, t := range toneOrder {
			if _, ok := r.tones[t][w]; ok {
				counts[t]++
			}
		}
	}
	best, bestCount := internal.ToneNeutral, 0
	for _, t := range toneOrder {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
