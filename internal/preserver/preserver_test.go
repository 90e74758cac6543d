package preserver

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/humanizer/internal"
)

func completed(content, transformed string) *internal.Chunk {
	return &internal.Chunk{Content: content, Transformed: transformed, Status: internal.ChunkCompleted}
}

func TestBuildStyleProfile(t *testing.T) {
	t.Run("ShouldBeNeutralWithoutMarkers", func(t *testing.T) {
		p := New()
		profile := p.BuildStyleProfile("The cat sat on the mat. The dog ran to the park.")
		assert.Equal(t, 50, profile.Formality)
		assert.Equal(t, internal.ToneNeutral, profile.Tone)
		assert.InDelta(t, 6.0, profile.AverageSentenceLength, 0.001)
		assert.InDelta(t, 0.0, profile.SentenceLengthVariation, 0.001)
	})

	t.Run("ShouldScoreFormalAndInformalMarkers", func(t *testing.T) {
		p := New()
		formal := p.BuildStyleProfile("The parties shall comply. Furthermore, the tenant must pay. Therefore it ends.")
		informal := p.BuildStyleProfile("Hey, it's gonna be cool!! Yeah, we're fine.")
		assert.Equal(t, 100, formal.Formality)
		assert.Equal(t, 0, informal.Formality)
		assert.Equal(t, internal.ToneFormal, formal.Tone)
		assert.Equal(t, internal.ToneCasual, informal.Tone)
	})

	t.Run("ShouldRankCommonPhrases", func(t *testing.T) {
		profile := New().BuildStyleProfile("The old man walked. The old man sat. The old man slept.")
		assert.Equal(t, []string{"the old", "old man", "the old man"}, profile.CommonPhrases)
	})

	t.Run("ShouldKeepScoresInRange", func(t *testing.T) {
		profile := New().BuildStyleProfile("Incomprehensibility notwithstanding, extraordinarily interdisciplinary.")
		assert.GreaterOrEqual(t, profile.VocabularyComplexity, 0)
		assert.LessOrEqual(t, profile.VocabularyComplexity, 100)
		assert.Greater(t, profile.VocabularyComplexity, 50)
	})

	t.Run("ShouldHandleEmptyText", func(t *testing.T) {
		profile := New().BuildStyleProfile("")
		assert.Equal(t, 50, profile.Formality)
		assert.Equal(t, 0, profile.VocabularyComplexity)
		assert.Equal(t, internal.ToneNeutral, profile.Tone)
		assert.Empty(t, profile.CommonPhrases)
	})
}

func TestSyllables(t *testing.T) {
	assert.Equal(t, 1, syllables("rhythm"))
	assert.Equal(t, 1, syllables("cat"))
	assert.Equal(t, 3, syllables("banana"))
}

func TestExtractContext(t *testing.T) {
	t.Run("ShouldAttributeDialogueVoices", func(t *testing.T) {
		text := strings.Repeat("Alice said, \"I love this.\" Bob replied, \"Me too!\" ", 4)
		local := New().ExtractContext(&internal.Chunk{Content: text})

		require.Contains(t, local.CharacterVoices, "alice")
		require.Contains(t, local.CharacterVoices, "bob")
		assert.Contains(t, local.CharacterVoices["alice"], "brief")
		assert.Contains(t, local.CharacterVoices["bob"], "brief")
		assert.Contains(t, local.CharacterVoices["bob"], "expressive")
		assert.NotContains(t, local.CharacterVoices["alice"], "expressive")
	})

	t.Run("ShouldAttributeTrailingSpeaker", func(t *testing.T) {
		text := "\"Where to?\" asked Mara. \"Home, I think,\" Tom answered."
		local := New().ExtractContext(&internal.Chunk{Content: text})
		assert.Equal(t, "brief, inquisitive", local.CharacterVoices["mara"])
		assert.Equal(t, "brief", local.CharacterVoices["tom"])
	})

	t.Run("ShouldIgnorePronounSpeakers", func(t *testing.T) {
		local := New().ExtractContext(&internal.Chunk{Content: "\"Fine,\" He said quietly."})
		assert.Empty(t, local.CharacterVoices)
	})

	t.Run("ShouldKeepLastFiveSentences", func(t *testing.T) {
		var b strings.Builder
		for i := 1; i <= 7; i++ {
			fmt.Fprintf(&b, "Sentence number %d ends here. ", i)
		}
		local := New().ExtractContext(&internal.Chunk{Content: b.String()})
		require.Len(t, local.PreviousSentences, MaxPreviousSentences)
		assert.Equal(t, "Sentence number 3 ends here.", local.PreviousSentences[0])
		assert.Equal(t, "Sentence number 7 ends here.", local.PreviousSentences[4])
	})

	t.Run("ShouldPreferTransformedContent", func(t *testing.T) {
		local := New().ExtractContext(completed("Old text here.", "New text here."))
		assert.Equal(t, []string{"New text here."}, local.PreviousSentences)

		pending := &internal.Chunk{Content: "Old text here.", Transformed: "New text here.", Status: internal.ChunkPending}
		local = New().ExtractContext(pending)
		assert.Equal(t, []string{"Old text here."}, local.PreviousSentences)
	})

	t.Run("ShouldSkipNarratorWithoutEnoughNarration", func(t *testing.T) {
		local := New().ExtractContext(&internal.Chunk{Content: "He walked home. \"It is a very long line of dialogue that does not count as narration at all,\" he said."})
		assert.Empty(t, local.NarratorVoice)
	})

	t.Run("ShouldDescribeNarrator", func(t *testing.T) {
		text := "I thought about the long road ahead. I felt tired and slowly, quietly, carefully, " +
			"gently, softly, warmly walked on through the evening until the lights came on."
		local := New().ExtractContext(&internal.Chunk{Content: text})
		assert.Equal(t, "first-person, introspective, descriptive", local.NarratorVoice)
	})

	t.Run("ShouldDetectThemes", func(t *testing.T) {
		text := "The king sat on his throne. The forest and the river were quiet. The king ruled. There was love."
		local := New().ExtractContext(&internal.Chunk{Content: text})
		assert.Equal(t, []string{"power", "nature"}, local.Themes)
	})

	t.Run("ShouldFindRepeatedKeyTerms", func(t *testing.T) {
		text := "Captain Reyes met Doctor Hale. Later, Captain Reyes left. CAPTAIN REYES returned."
		local := New().ExtractContext(&internal.Chunk{Content: text})
		assert.Equal(t, []string{"Captain Reyes"}, local.KeyTerms)
	})

	t.Run("ShouldUseInjectedLexicon", func(t *testing.T) {
		lex := DefaultLexicon()
		lex.ThemeOrder = []string{"sea"}
		lex.Themes = map[string][]string{"sea": {"wave", "tide"}}
		local := New(WithLexicon(lex)).ExtractContext(&internal.Chunk{Content: "A wave and a tide. The king and the king."})
		assert.Equal(t, []string{"sea"}, local.Themes)
	})
}

func TestGlobalContext_Merge(t *testing.T) {
	t.Run("ShouldNeverExceedCaps", func(t *testing.T) {
		var g GlobalContext
		for i := 0; i < 200; i++ {
			g = g.Merge(internal.ChunkContext{
				Themes:   []string{fmt.Sprintf("theme-%d", i)},
				KeyTerms: []string{fmt.Sprintf("Term %d", i), fmt.Sprintf("Other %d", i)},
			})
			require.LessOrEqual(t, len(g.Themes), MaxThemes)
			require.LessOrEqual(t, len(g.KeyTerms), MaxKeyTerms)
		}
		assert.Equal(t, "theme-180", g.Themes[0])
		assert.Equal(t, "Other 199", g.KeyTerms[len(g.KeyTerms)-1])
	})

	t.Run("ShouldOverwriteVoicesAndKeepNarrator", func(t *testing.T) {
		g := GlobalContext{Voices: map[string]string{"alice": "brief"}, Narrator: "third-person"}
		g = g.Merge(internal.ChunkContext{CharacterVoices: map[string]string{"alice": "verbose", "bob": "brief"}})
		assert.Equal(t, map[string]string{"alice": "verbose", "bob": "brief"}, g.Voices)
		assert.Equal(t, "third-person", g.Narrator)

		g = g.Merge(internal.ChunkContext{NarratorVoice: "first-person"})
		assert.Equal(t, "first-person", g.Narrator)
	})

	t.Run("ShouldSlidePreviousSentences", func(t *testing.T) {
		g := GlobalContext{Previous: []string{"a", "b", "c", "d"}}
		g = g.Merge(internal.ChunkContext{PreviousSentences: []string{"e", "f"}})
		assert.Equal(t, []string{"b", "c", "d", "e", "f"}, g.Previous)
	})

	t.Run("ShouldNotModifyReceiver", func(t *testing.T) {
		g := GlobalContext{Themes: []string{"love"}, Voices: map[string]string{"alice": "brief"}}
		_ = g.Merge(internal.ChunkContext{Themes: []string{"war"}, CharacterVoices: map[string]string{"alice": "verbose"}})
		assert.Equal(t, []string{"love"}, g.Themes)
		assert.Equal(t, "brief", g.Voices["alice"])
	})
}

func TestPreserver(t *testing.T) {
	chunks := []*internal.Chunk{
		completed("Alice said, \"Hello there.\" The king waited.", "Alice said, \"Hi there.\" The king waited."),
		completed("The Iron Gate opened. The Iron Gate closed. The king left.", "The Iron Gate opened. The Iron Gate shut. The king left."),
		completed("Bob replied, \"Where now?\" The forest was dark and the river was cold.", "Bob replied, \"Where now?\" The forest was dark and the river cold."),
	}

	t.Run("ShouldBeReproducibleFromPreviousStatePlusLocal", func(t *testing.T) {
		p := New()
		p.BuildStyleProfile("The king waited by the gate.")
		for _, c := range chunks {
			before := p.Global()
			local := p.ExtractContext(c)
			p.Fold(c)
			assert.Equal(t, before.Merge(local), p.Global())
		}
	})

	t.Run("ShouldAttachOnlyProfileToFirstChunk", func(t *testing.T) {
		p := New()
		p.Fold(chunks[0])
		p.BuildStyleProfile("Some text.")

		first := &internal.Chunk{Content: "x", Context: internal.ChunkContext{
			ProtectedSegments: []internal.Segment{{Start: 0, End: 1}},
		}}
		p.PrepareChunkContext(first, nil)
		require.NotNil(t, first.Context.StyleProfile)
		assert.Empty(t, first.Context.PreviousSentences)
		assert.Empty(t, first.Context.CharacterVoices)
		assert.Equal(t, []internal.Segment{{Start: 0, End: 1}}, first.Context.ProtectedSegments)
	})

	t.Run("ShouldFoldPreviousBeforeAttaching", func(t *testing.T) {
		p := New()
		p.BuildStyleProfile("Some text.")
		next := &internal.Chunk{Content: "next"}
		p.PrepareChunkContext(next, chunks[0])
		assert.Equal(t, "brief", next.Context.CharacterVoices["alice"])
		assert.Equal(t, []string{"Alice said, \"Hi there.\"", "The king waited."}, next.Context.PreviousSentences)
		require.NotNil(t, next.Context.StyleProfile)
	})

	t.Run("ShouldNotAliasGlobalState", func(t *testing.T) {
		p := New()
		p.BuildStyleProfile("The cat sat on the mat.")
		p.Fold(chunks[0])
		p.Fold(chunks[1])

		c := &internal.Chunk{Content: "next"}
		p.Attach(c)
		require.NotEmpty(t, c.Context.KeyTerms)
		require.NotNil(t, c.Context.StyleProfile)

		c.Context.KeyTerms[0] = "mutated"
		c.Context.CharacterVoices["alice"] = "mutated"
		c.Context.StyleProfile.Formality = 99
		c.Context.PreviousSentences[0] = "mutated"

		g := p.Global()
		assert.Equal(t, "The Iron Gate", g.KeyTerms[0])
		assert.Equal(t, "brief", g.Voices["alice"])
		assert.Equal(t, 50, g.Profile.Formality)
		assert.NotEqual(t, "mutated", g.Previous[0])
	})

	t.Run("ShouldResetAllState", func(t *testing.T) {
		p := New()
		p.BuildStyleProfile("Text.")
		for _, c := range chunks {
			p.Fold(c)
		}
		p.Reset()
		assert.Equal(t, GlobalContext{}, p.Global())
	})

	t.Run("ShouldRestoreState", func(t *testing.T) {
		p := New()
		p.Fold(chunks[0])
		saved := p.Global()

		q := New()
		q.Restore(saved)
		q.Fold(chunks[1])
		p.Fold(chunks[1])
		assert.Equal(t, p.Global(), q.Global())
	})
}
