// Package preserver keeps narrative and stylistic continuity across the
// chunks of one job. A Preserver owns a single GlobalContext that is folded
// forward one completed chunk at a time and copied onto the next chunk
// before it is rewritten.
//
// A Preserver is job-scoped and not safe for concurrent use; the pipeline is
// its only writer.
package preserver

import (
	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/ordset"
)

const (
	MaxPreviousSentences = 5
	MaxThemes            = 20
	MaxKeyTerms          = 50
)

// GlobalContext is the running continuity state of a job. Merge is a pure
// function of the receiver and one chunk's local extraction, so the state
// after chunk k depends only on the state after chunk k-1 and chunk k.
type GlobalContext struct {
	Profile  *internal.StyleProfile
	Previous []string
	Voices   map[string]string
	Narrator string
	Themes   []string
	KeyTerms []string
}

// Merge folds a local extraction into g and returns the result. g is not
// modified.
func (g GlobalContext) Merge(local internal.ChunkContext) GlobalContext {
	out := g.Clone()

	prev := append(out.Previous, local.PreviousSentences...)
	if len(prev) > MaxPreviousSentences {
		prev = prev[len(prev)-MaxPreviousSentences:]
	}
	out.Previous = append([]string(nil), prev...)

	for name, voice := range local.CharacterVoices {
		if out.Voices == nil {
			out.Voices = make(map[string]string)
		}
		out.Voices[name] = voice
	}
	if local.NarratorVoice != "" {
		out.Narrator = local.NarratorVoice
	}

	out.Themes = mergeCapped(out.Themes, local.Themes, MaxThemes)
	out.KeyTerms = mergeCapped(out.KeyTerms, local.KeyTerms, MaxKeyTerms)
	return out
}

func mergeCapped(current, incoming []string, limit int) []string {
	s := ordset.New(limit)
	s.AddAll(current...)
	s.AddAll(incoming...)
	return s.Values()
}

// Clone returns a deep copy of g.
func (g GlobalContext) Clone() GlobalContext {
	out := GlobalContext{
		Previous: append([]string(nil), g.Previous...),
		Narrator: g.Narrator,
		Themes:   append([]string(nil), g.Themes...),
		KeyTerms: append([]string(nil), g.KeyTerms...),
	}
	if g.Voices != nil {
		out.Voices = make(map[string]string, len(g.Voices))
		for k, v := range g.Voices {
			out.Voices[k] = v
		}
	}
	if g.Profile != nil {
		p := g.Profile.Clone()
		out.Profile = &p
	}
	return out
}

// Snapshot renders g as a chunk context carrying the given chunk-relative
// protected segments. The result shares nothing with g.
func (g GlobalContext) Snapshot(protected []internal.Segment) internal.ChunkContext {
	c := g.Clone()
	return internal.ChunkContext{
		PreviousSentences: c.Previous,
		CharacterVoices:   c.Voices,
		NarratorVoice:     c.Narrator,
		Themes:            c.Themes,
		KeyTerms:          c.KeyTerms,
		StyleProfile:      c.Profile,
		ProtectedSegments: append([]internal.Segment(nil), protected...),
	}
}

type Preserver struct {
	rules  *rules
	global GlobalContext
}

type Option func(*Preserver)

// WithLexicon replaces the default English lookup tables.
func WithLexicon(lex Lexicon) Option {
	return func(p *Preserver) {
		p.rules = compile(lex)
	}
}

func New(opts ...Option) *Preserver {
	p := &Preserver{}
	for _, opt := range opts {
		opt(p)
	}
	if p.rules == nil {
		p.rules = compile(DefaultLexicon())
	}
	return p
}

// BuildStyleProfile profiles the whole document and installs the result as
// the job's immutable style profile.
func (p *Preserver) BuildStyleProfile(text string) internal.StyleProfile {
	profile := p.rules.buildProfile(text)
	stored := profile.Clone()
	p.global.Profile = &stored
	return profile
}

// ExtractContext derives a local context from a chunk's rewritten body, or
// from its original content if it has not been rewritten.
func (p *Preserver) ExtractContext(chunk *internal.Chunk) internal.ChunkContext {
	text := chunk.Content
	if chunk.Status == internal.ChunkCompleted && !chunk.Declined && chunk.Transformed != "" {
		text = chunk.Transformed
	}
	return p.rules.extract(text)
}

// Fold extracts chunk's local context and merges it into the global state.
func (p *Preserver) Fold(chunk *internal.Chunk) {
	p.global = p.global.Merge(p.ExtractContext(chunk))
}

// Attach copies the current global state onto chunk.Context, keeping the
// chunk's own protected segments.
func (p *Preserver) Attach(chunk *internal.Chunk) {
	chunk.Context = p.global.Snapshot(chunk.Context.ProtectedSegments)
}

// PrepareChunkContext refreshes the global state from previous, when there
// is one, and attaches it to chunk. The first chunk of a job only receives
// the style profile.
func (p *Preserver) PrepareChunkContext(chunk, previous *internal.Chunk) {
	if previous == nil {
		ctx := internal.ChunkContext{
			ProtectedSegments: append([]internal.Segment(nil), chunk.Context.ProtectedSegments...),
		}
		if p.global.Profile != nil {
			profile := p.global.Profile.Clone()
			ctx.StyleProfile = &profile
		}
		chunk.Context = ctx
		return
	}
	p.Fold(previous)
	p.Attach(chunk)
}

// Global returns a copy of the accumulated state.
func (p *Preserver) Global() GlobalContext {
	return p.global.Clone()
}

// Restore replaces the accumulated state, e.g. when resuming a job from a
// checkpoint.
func (p *Preserver) Restore(g GlobalContext) {
	p.global = g.Clone()
}

// Reset clears all accumulated state, including the style profile.
func (p *Preserver) Reset() {
	p.global = GlobalContext{}
}
