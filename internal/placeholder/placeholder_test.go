package placeholder_test

import (
	"strings"
	"testing"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/placeholder"
)

func TestProtect_NoSpans(t *testing.T) {
	text := "Hello, world!"
	got, markers := placeholder.Protect(text, nil)
	if got != text {
		t.Errorf("expected unchanged text, got %q", got)
	}
	if len(markers) != 0 {
		t.Errorf("expected 0 markers, got %d", len(markers))
	}
}

func TestProtect_Spans(t *testing.T) {
	text := "Meet Dr. Ångström at <b>noon</b>."
	spans := []internal.Segment{{Start: 5, End: 17}, {Start: 21, End: 24}, {Start: 28, End: 32}}
	got, markers := placeholder.Protect(text, spans)

	want := "Meet [PH0] at [PH1]noon[PH2]."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if len(markers) != 3 || markers[0] != "Dr. Ångström" || markers[1] != "<b>" || markers[2] != "</b>" {
		t.Errorf("unexpected markers %v", markers)
	}
}

func TestProtect_SkipsInvalidSpans(t *testing.T) {
	text := "abcdef"
	got, markers := placeholder.Protect(text, []internal.Segment{{Start: 1, End: 3}, {Start: 2, End: 4}, {Start: 4, End: 99}})
	if got != "a[PH0]def" {
		t.Errorf("unexpected text %q", got)
	}
	if len(markers) != 1 {
		t.Errorf("expected 1 marker, got %v", markers)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	original := "<p>Hello <b>world</b></p>"
	spans := []internal.Segment{{Start: 0, End: 3}, {Start: 9, End: 12}, {Start: 17, End: 21}, {Start: 21, End: 25}}
	protected, markers := placeholder.Protect(original, spans)
	if strings.Contains(protected, "<") {
		t.Fatalf("tags still present in %q", protected)
	}

	restored := placeholder.Restore(protected, markers)
	if restored != original {
		t.Errorf("round-trip failed:\n  original:  %q\n  restored:  %q", original, restored)
	}
}

func TestRestore_MovedMarkers(t *testing.T) {
	restored := placeholder.Restore("[PH1] then [PH0]", []string{"first", "second"})
	if restored != "second then first" {
		t.Errorf("unexpected restore %q", restored)
	}
}

func TestRestore_OutOfRangeIndexIgnored(t *testing.T) {
	// A rewrite that invents a placeholder index that doesn't exist.
	restored := placeholder.Restore("[PH99] some text", []string{"<p>"})
	if !strings.Contains(restored, "[PH99]") {
		t.Errorf("expected [PH99] to remain, got %q", restored)
	}
}

func TestValidate_AllPresent(t *testing.T) {
	missing := placeholder.Validate("[PH0] some [PH1] text", []string{"<p>", "</p>"})
	if len(missing) != 0 {
		t.Errorf("expected no missing, got %v", missing)
	}
}

func TestValidate_SomeMissing(t *testing.T) {
	missing := placeholder.Validate("[PH0] some text", []string{"<p>", "</p>", "<b>"})
	if len(missing) != 2 || missing[0] != 1 || missing[1] != 2 {
		t.Errorf("expected missing [1 2], got %v", missing)
	}
}

func TestValidate_Duplicated(t *testing.T) {
	missing := placeholder.Validate("[PH0] and again [PH0]", []string{"x"})
	if len(missing) != 1 || missing[0] != 0 {
		t.Errorf("expected duplicated marker to be reported, got %v", missing)
	}
}

func TestInstructionHint_NotEmpty(t *testing.T) {
	if placeholder.InstructionHint() == "" {
		t.Error("InstructionHint should not return empty string")
	}
}
