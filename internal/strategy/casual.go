package strategy

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type replacement struct {
	re   *regexp.Regexp
	with string
}

func rule(pattern, with string) replacement {
	expr := `(?i)\b` + pattern
	if !strings.HasSuffix(pattern, ",") {
		expr += `\b`
	}
	return replacement{re: regexp.MustCompile(expr), with: with}
}

// Rules unlock by level: contractions from 1, connectives from 3, plain
// vocabulary from 5.
var (
	contractions = []replacement{
		rule(`will not`, "won't"),
		rule(`cannot`, "can't"),
		rule(`can not`, "can't"),
		rule(`do not`, "don't"),
		rule(`does not`, "doesn't"),
		rule(`did not`, "didn't"),
		rule(`is not`, "isn't"),
		rule(`are not`, "aren't"),
		rule(`was not`, "wasn't"),
		rule(`would not`, "wouldn't"),
		rule(`should not`, "shouldn't"),
		rule(`i am`, "I'm"),
		rule(`it is`, "it's"),
		rule(`you are`, "you're"),
		rule(`we are`, "we're"),
		rule(`they are`, "they're"),
		rule(`that is`, "that's"),
		rule(`let us`, "let's"),
	}
	connectives = []replacement{
		rule(`however,`, "but"),
		rule(`therefore,`, "so"),
		rule(`furthermore,`, "plus,"),
		rule(`moreover,`, "what's more,"),
		rule(`in addition,`, "also,"),
		rule(`consequently,`, "so"),
		rule(`nevertheless,`, "still,"),
	}
	vocabulary = []replacement{
		rule(`utilize`, "use"),
		rule(`utilise`, "use"),
		rule(`purchase`, "buy"),
		rule(`commence`, "start"),
		rule(`approximately`, "about"),
		rule(`assist`, "help"),
		rule(`sufficient`, "enough"),
		rule(`numerous`, "many"),
		rule(`regarding`, "about"),
	}
)

// Casual is an offline strategy that loosens register with deterministic
// word-level substitutions. Higher levels enable more substitutions.
type Casual struct{}

func (Casual) Name() string { return "casual" }

func (Casual) Rewrite(ctx context.Context, req Request) (string, error) {
	text := applyAll(req.Text, contractions)
	if req.Level >= 3 {
		text = applyAll(text, connectives)
	}
	if req.Level >= 5 {
		text = applyAll(text, vocabulary)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

func applyAll(text string, rules []replacement) string {
	for _, r := range rules {
		with := r.with
		text = r.re.ReplaceAllStringFunc(text, func(match string) string {
			return matchCase(match, with)
		})
	}
	return text
}

// matchCase capitalises with when match starts with an upper-case letter.
func matchCase(match, with string) string {
	first, _ := utf8.DecodeRuneInString(match)
	if !unicode.IsUpper(first) || with == "" {
		return with
	}
	r, size := utf8.DecodeRuneInString(with)
	return strings.ToUpper(string(r)) + with[size:]
}
