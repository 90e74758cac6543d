package preserver

import (
	"regexp"

	"github.com/valpere/humanizer/internal"
)

// Lexicon holds the lookup tables behind every heuristic in this package.
// Swapping it changes locale or tuning without touching the pipeline.
// All words are lower case.
type Lexicon struct {
	// Formality markers. Contractions and repeated exclamation marks count
	// as informal on top of InformalWords.
	InformalWords []string
	FormalWords   []string

	// Tone buckets; argmax wins, all-zero is neutral.
	Tone map[internal.Tone][]string

	// ThemeOrder fixes category precedence when counts tie.
	ThemeOrder []string
	Themes     map[string][]string

	ReportingVerbs   []string
	InteriorityVerbs []string

	// Capitalised words that can open an attribution but are not names.
	NonNames []string

	FirstPerson  []string
	SecondPerson []string
	ThirdPerson  []string
}

var (
	reContraction  = regexp.MustCompile(`(?i)\b[a-z]+['’](?:s|t|re|ve|ll|d|m)\b`)
	reExclamations = regexp.MustCompile(`!{2,}`)
)

// DefaultLexicon returns a fresh English lexicon; callers may modify it.
func DefaultLexicon() Lexicon {
	return Lexicon{
		InformalWords: []string{
			"hey", "wow", "yeah", "yep", "nope", "gonna", "wanna", "gotta", "kinda", "sorta",
			"oh", "ugh", "hmm", "lol", "okay", "ok", "cool", "awesome", "stuff", "guys",
		},
		FormalWords: []string{
			"however", "therefore", "furthermore", "moreover", "consequently", "nevertheless",
			"thus", "hence", "accordingly", "whereas", "shall", "must", "hereby", "herein",
			"thereof", "pursuant", "notwithstanding", "heretofore", "whereby",
		},
		Tone: map[internal.Tone][]string{
			internal.TonePositive: {"love", "happy", "joy", "great", "wonderful", "delight", "hope", "smile", "beautiful", "glad"},
			internal.ToneNegative: {"hate", "sad", "angry", "fear", "terrible", "pain", "cry", "awful", "dark", "grief"},
			internal.ToneFormal:   {"therefore", "furthermore", "consequently", "regarding", "pursuant", "accordingly", "hereby", "shall"},
			internal.ToneCasual:   {"hey", "yeah", "gonna", "wanna", "cool", "stuff", "okay", "guys", "kinda", "wow"},
		},
		ThemeOrder: []string{
			"love", "conflict", "family", "friendship", "power",
			"death", "nature", "technology", "journey", "mystery",
		},
		Themes: map[string][]string{
			"love":       {"love", "heart", "kiss", "romance", "beloved", "passion", "adore"},
			"conflict":   {"war", "fight", "battle", "enemy", "attack", "struggle", "conflict"},
			"family":     {"mother", "father", "sister", "brother", "family", "son", "daughter", "parents"},
			"friendship": {"friend", "friends", "together", "loyal", "trust", "companion"},
			"power":      {"king", "queen", "power", "throne", "rule", "control", "empire"},
			"death":      {"death", "die", "died", "dead", "grave", "funeral", "mourning"},
			"nature":     {"forest", "river", "mountain", "sea", "tree", "sky", "storm", "wind"},
			"technology": {"machine", "computer", "robot", "software", "network", "engine", "device"},
			"journey":    {"journey", "road", "travel", "path", "voyage", "quest", "home"},
			"mystery":    {"secret", "mystery", "clue", "hidden", "strange", "unknown", "shadow"},
		},
		ReportingVerbs: []string{
			"said", "asked", "replied", "answered", "shouted", "whispered",
			"exclaimed", "muttered", "cried", "added", "yelled", "called",
		},
		InteriorityVerbs: []string{"thought", "felt", "realized", "realised", "wondered", "knew", "remembered"},
		NonNames: []string{
			"he", "she", "they", "it", "we", "i", "you", "the", "then", "and", "but", "someone",
		},
		FirstPerson:  []string{"i", "me", "my", "mine", "myself", "we", "us", "our", "ours"},
		SecondPerson: []string{"you", "your", "yours", "yourself"},
		ThirdPerson:  []string{"he", "she", "him", "her", "his", "hers", "they", "them", "their", "it", "its"},
	}
}

func wordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
