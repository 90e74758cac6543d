package strategy

import (
	"context"
	"errors"
	"fmt"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// Pivot chains per level. Longer and more distant chains drift further from
// the source phrasing.
var pivotChains = map[int][]language.Tag{
	1: {language.French},
	2: {language.German},
	3: {language.French, language.German},
	4: {language.German, language.Japanese},
	5: {language.Japanese, language.Russian, language.French},
}

// translator is the subset of the Cloud Translation client used here.
type translator interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// RoundTrip rewrites a chunk by translating it through one or more pivot
// languages and back with Google Cloud Translation.
type RoundTrip struct {
	source    language.Tag
	newClient func(ctx context.Context) (translator, error)
}

// NewRoundTrip returns a round-trip strategy for text in sourceLang. An empty
// credentials path uses application default credentials.
func NewRoundTrip(sourceLang, credentials string) (*RoundTrip, error) {
	tag := language.English
	if sourceLang != "" {
		var err error
		if tag, err = language.Parse(sourceLang); err != nil {
			return nil, fmt.Errorf("invalid source language: %w", err)
		}
	}
	return &RoundTrip{
		source: tag,
		newClient: func(ctx context.Context) (translator, error) {
			var opts []option.ClientOption
			if credentials != "" {
				opts = append(opts, option.WithCredentialsFile(credentials))
			}
			return translate.NewClient(ctx, opts...)
		},
	}, nil
}

func (s *RoundTrip) Name() string {
	return "roundtrip"
}

func (s *RoundTrip) Rewrite(ctx context.Context, req Request) (string, error) {
	chain, ok := pivotChains[req.Level]
	if !ok {
		return "", Permanent(fmt.Errorf("no pivot chain for level %d", req.Level))
	}

	client, err := s.newClient(ctx)
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to create client: %w", err))
	}
	defer client.Close()

	text, from := req.Text, s.source
	for _, to := range append(append([]language.Tag(nil), chain...), s.source) {
		if text, err = s.hop(ctx, client, text, from, to); err != nil {
			return "", err
		}
		from = to
	}
	return text, nil
}

func (s *RoundTrip) hop(ctx context.Context, client translator, text string, from, to language.Tag) (string, error) {
	out, err := client.Translate(ctx, []string{text}, to, &translate.Options{
		Source: from,
		Format: translate.Text,
	})
	if err != nil {
		return "", fmt.Errorf("translation %s->%s failed: %w", from, to, err)
	}
	if len(out) == 0 {
		return "", errors.New("no translation returned")
	}
	return out[0].Text, nil
}
