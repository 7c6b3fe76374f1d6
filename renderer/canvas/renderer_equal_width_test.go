package canvasrenderer

import (
	"testing"

	"github.com/ByLCY/romaneio/layout"
)

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := newTestRenderer(t)
	fonts := r.Fonts()

	first := "SAMPLE-A"
	limit, err := fonts.Regular.WidthOfTextAtSize(first, 12)
	if err != nil {
		t.Fatalf("measure error: %v", err)
	}
	if limit <= 0 {
		t.Fatalf("invalid measured width: %g", limit)
	}

	lines := layout.Wrap(first+"\n"+"SAMPLE-B", limit, fonts.Regular, 12)
	if got := len(lines); got != 2 {
		t.Fatalf("expected 2 lines without blank, got %d: %q", got, lines)
	}
	if lines[0] != first {
		t.Fatalf("first line mismatch: got=%q want=%q", lines[0], first)
	}
	if lines[1] != "SAMPLE-B" {
		t.Fatalf("second line mismatch: got=%q want=%q", lines[1], "SAMPLE-B")
	}
}
