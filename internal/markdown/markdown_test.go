package markdown

import (
	"strings"
	"testing"
)

func TestToPlainText_Prose(t *testing.T) {
	md := "# Chapter One\n\nIt was a *dark* and **stormy** night.\nThe wind howled.\n"
	got := ToPlainText([]byte(md))

	if !strings.HasPrefix(got, "Chapter One\n\n") {
		t.Errorf("expected heading to be its own block, got %q", got)
	}
	want := "Chapter One It was a dark and stormy night. The wind howled."
	if flat := strings.Join(strings.Fields(got), " "); flat != want {
		t.Errorf("ToPlainText() = %q, want %q", flat, want)
	}
}

func TestToPlainText_DropsCodeBlocks(t *testing.T) {
	md := "Intro text.\n\n```go\nfmt.Println(\"hi\")\n```\n\nUse `go run` here."
	got := ToPlainText([]byte(md))

	if strings.Contains(got, "Println") {
		t.Errorf("code block leaked into %q", got)
	}
	if !strings.Contains(got, "Use go run here.") {
		t.Errorf("inline code missing from %q", got)
	}
}

func TestToPlainText_Lists(t *testing.T) {
	got := ToPlainText([]byte("- first item\n- second item\n"))
	if !strings.Contains(got, "first item") || !strings.Contains(got, "second item") {
		t.Errorf("list items missing from %q", got)
	}
}

func TestToPlainText_Empty(t *testing.T) {
	if got := ToPlainText(nil); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}
