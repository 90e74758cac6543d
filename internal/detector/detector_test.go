package detector

import (
	"testing"

	lingua "github.com/pemistahl/lingua-go"
)

// pivot-language leaks are what a roundtrip rewrite produces when the final
// hop back to the source language is lost.
func TestDetector_DetectISO(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		text     string
		wantCode string
		wantOK   bool
	}{
		{
			name:     "empty chunk",
			text:     "",
			wantCode: "",
			wantOK:   false,
		},
		{
			name:     "english narration",
			text:     "The rain had not stopped for three days, and the river was rising fast.",
			wantCode: "EN",
			wantOK:   true,
		},
		{
			name:     "english casual rewrite",
			text:     "It hadn't stopped raining for three days, and the river kept rising.",
			wantCode: "EN",
			wantOK:   true,
		},
		{
			name:     "french pivot leak",
			text:     "La pluie ne s'était pas arrêtée depuis trois jours et la rivière montait vite.",
			wantCode: "FR",
			wantOK:   true,
		},
		{
			name:     "german pivot leak",
			text:     "Der Regen hatte seit drei Tagen nicht aufgehört, und der Fluss stieg schnell.",
			wantCode: "DE",
			wantOK:   true,
		},
		{
			name:     "russian pivot leak",
			text:     "Дождь не прекращался уже три дня, и река быстро поднималась.",
			wantCode: "RU",
			wantOK:   true,
		},
		{
			name:     "japanese pivot leak",
			text:     "雨は三日間止まず、川はどんどん水かさを増していた。",
			wantCode: "JA",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := d.DetectISO(tt.text)
			if ok != tt.wantOK {
				t.Errorf("DetectISO(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
				return
			}
			if tt.wantOK && code != tt.wantCode {
				t.Errorf("DetectISO(%q) = %q, want %q", tt.text, code, tt.wantCode)
			}
		})
	}
}

func TestDetector_Detect(t *testing.T) {
	d := New()

	lang, ok := d.Detect("She closed the door quietly and waited in the dark hallway.")
	if !ok || lang != lingua.English {
		t.Errorf("Detect = %v, %v; want English, true", lang, ok)
	}
	if _, ok := d.Detect(""); ok {
		t.Error("expected empty text to be undetected")
	}
}

func TestDetector_RestrictedLanguages(t *testing.T) {
	d := New(lingua.English, lingua.German)

	code, ok := d.DetectISO("Hallo, das ist ein Test auf Deutsch.")
	if !ok || code != "DE" {
		t.Errorf("DetectISO = %q, %v; want DE, true", code, ok)
	}
	code, ok = d.DetectISO("This chunk was rewritten in plain English.")
	if !ok || code != "EN" {
		t.Errorf("DetectISO = %q, %v; want EN, true", code, ok)
	}
}

func TestDetector_SingleLanguageFallsBackToAll(t *testing.T) {
	d := New(lingua.English)

	code, ok := d.DetectISO("Der Regen hatte seit drei Tagen nicht aufgehört.")
	if !ok || code != "DE" {
		t.Errorf("DetectISO = %q, %v; want DE, true", code, ok)
	}
}
