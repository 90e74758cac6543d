package pipeline

import (
	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/chunker"
)

// Metrics accompany the output. The detection scores are filled in by an
// external scorer when one is configured; the pipeline only carries them.
type Metrics struct {
	DetectionScoreBefore *float64 `json:"detection_score_before,omitempty"`
	DetectionScoreAfter  *float64 `json:"detection_score_after,omitempty"`
	SentencesModified    int      `json:"sentences_modified"`
	TotalSentences       int      `json:"total_sentences"`
}

// Result is the terminal payload of a run. Output always holds every
// completed chunk's rewrite and the original text of every other chunk.
type Result struct {
	JobID    string               `json:"job_id"`
	Status   internal.JobStatus   `json:"status"`
	Output   string               `json:"output"`
	Chunks   []internal.Chunk     `json:"chunks"`
	Metrics  Metrics              `json:"metrics"`
	Progress internal.JobProgress `json:"progress"`
	Err      error                `json:"-"`
}

// sentenceMetrics counts source sentences and how many of them no longer
// appear verbatim in their chunk's output.
func sentenceMetrics(chunks []internal.Chunk) Metrics {
	var m Metrics
	for i := range chunks {
		c := &chunks[i]
		before := chunker.Sentences(c.Content)
		m.TotalSentences += len(before)
		if c.Status != internal.ChunkCompleted || c.Declined {
			continue
		}
		after := make(map[string]struct{})
		for _, s := range chunker.Sentences(c.Output()) {
			after[s] = struct{}{}
		}
		for _, s := range before {
			if _, ok := after[s]; !ok {
				m.SentencesModified++
			}
		}
	}
	return m
}
