package internal

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

// JobRequest is the persisted record of a submitted rewrite job.
type JobRequest struct {
	ID         string    `json:"id"`
	SourceText string    `json:"source_text"`
	Strategy   string    `json:"strategy"`
	Level      int       `json:"level"`
	Timestamp  time.Time `json:"timestamp"`
}

// Segment is a half-open [Start, End) range of rune offsets.
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Segment) Len() int { return s.End - s.Start }

// Contains reports whether pos lies strictly inside the segment, i.e. a cut at
// pos would split it.
func (s Segment) Contains(pos int) bool {
	return pos > s.Start && pos < s.End
}

// Document is the immutable input of a job. Protected segments are rune
// offsets into Text that must survive the rewrite verbatim.
type Document struct {
	Text      string    `json:"text"`
	Protected []Segment `json:"protected,omitempty"`
	Markdown  bool      `json:"markdown,omitempty"`
}

type TransformSettings struct {
	Level    int    `mapstructure:"level" json:"level"`
	Strategy string `mapstructure:"strategy" json:"strategy"`
}

func (s TransformSettings) Validate() error {
	if s.Level < MinLevel || s.Level > MaxLevel {
		return fmt.Errorf("level must be between %d and %d, got %d", MinLevel, MaxLevel, s.Level)
	}
	if strings.TrimSpace(s.Strategy) == "" {
		return fmt.Errorf("strategy name is required")
	}
	return nil
}

type ChunkStatus string

const (
	ChunkPending    ChunkStatus = "pending"
	ChunkProcessing ChunkStatus = "processing"
	ChunkCompleted  ChunkStatus = "completed"
	ChunkFailed     ChunkStatus = "failed"
)

type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneFormal   Tone = "formal"
	ToneCasual   Tone = "casual"
	ToneNeutral  Tone = "neutral"
)

// StyleProfile summarises the whole input document. It is computed once per
// job and shared read-only by every chunk.
type StyleProfile struct {
	Formality               int      `json:"formality"`
	VocabularyComplexity    int      `json:"vocabulary_complexity"`
	AverageSentenceLength   float64  `json:"average_sentence_length"`
	SentenceLengthVariation float64  `json:"sentence_length_variation"`
	CommonPhrases           []string `json:"common_phrases"`
	Tone                    Tone     `json:"tone"`
}

func (p StyleProfile) Clone() StyleProfile {
	p.CommonPhrases = append([]string(nil), p.CommonPhrases...)
	return p
}

// ChunkContext is the continuity information handed to a strategy together
// with a chunk. NarratorVoice is empty when no narrator was detected.
// ProtectedSegments are relative to the chunk's own content.
type ChunkContext struct {
	PreviousSentences []string          `json:"previous_sentences,omitempty"`
	CharacterVoices   map[string]string `json:"character_voices,omitempty"`
	NarratorVoice     string            `json:"narrator_voice,omitempty"`
	Themes            []string          `json:"themes,omitempty"`
	KeyTerms          []string          `json:"key_terms,omitempty"`
	StyleProfile      *StyleProfile     `json:"style_profile,omitempty"`
	ProtectedSegments []Segment         `json:"protected_segments,omitempty"`
}

// Clone returns a deep copy that shares no mutable state with c.
func (c ChunkContext) Clone() ChunkContext {
	out := ChunkContext{
		PreviousSentences: append([]string(nil), c.PreviousSentences...),
		NarratorVoice:     c.NarratorVoice,
		Themes:            append([]string(nil), c.Themes...),
		KeyTerms:          append([]string(nil), c.KeyTerms...),
		ProtectedSegments: append([]Segment(nil), c.ProtectedSegments...),
	}
	if c.CharacterVoices != nil {
		out.CharacterVoices = make(map[string]string, len(c.CharacterVoices))
		for k, v := range c.CharacterVoices {
			out.CharacterVoices[k] = v
		}
	}
	if c.StyleProfile != nil {
		p := c.StyleProfile.Clone()
		out.StyleProfile = &p
	}
	return out
}

// Chunk is one bounded slice of a document. Start and End are rune offsets
// into the source text; Index defines reassembly order.
type Chunk struct {
	Index       int          `json:"index"`
	Start       int          `json:"start"`
	End         int          `json:"end"`
	Content     string       `json:"content"`
	Context     ChunkContext `json:"context"`
	Transformed string       `json:"transformed,omitempty"`
	Status      ChunkStatus  `json:"status"`
	Attempts    int          `json:"attempts"`
	Declined    bool         `json:"declined,omitempty"`
}

// Output returns the body used for reassembly.
func (c *Chunk) Output() string {
	if c.Status == ChunkCompleted && !c.Declined {
		return c.Transformed
	}
	return c.Content
}

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled || s == JobFailed
}

// JobProgress is a point-in-time copy of a job's counters.
// EstimatedRemainingMs is nil until at least one chunk has completed.
type JobProgress struct {
	JobID                string    `json:"job_id"`
	TotalChunks          int       `json:"total_chunks"`
	CompletedChunks      int       `json:"completed_chunks"`
	FailedChunks         int       `json:"failed_chunks"`
	Cancelled            bool      `json:"cancelled"`
	StartedAt            time.Time `json:"started_at"`
	EstimatedRemainingMs *int64    `json:"estimated_remaining_ms"`
}

// Percent returns completion in [0, 100].
func (p JobProgress) Percent() int {
	if p.TotalChunks == 0 {
		return 100
	}
	pct := p.CompletedChunks * 100 / p.TotalChunks
	if pct > 100 {
		pct = 100
	}
	return pct
}
