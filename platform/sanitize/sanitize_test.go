package sanitize

import "testing"

func TestTextStripsTags(t *testing.T) {
	got := Text("<div>Hello <b>world</b></div>")
	if got != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", got)
	}
}

func TestTextBlockBoundariesBecomeNewlines(t *testing.T) {
	got := Text("<p>First</p><p>Second</p><br>Third")
	if got != "First\nSecond\nThird" {
		t.Fatalf("expected %q, got %q", "First\nSecond\nThird", got)
	}
}

func TestTextDecodesEntities(t *testing.T) {
	got := Text("Fees &amp; terms &ndash; none")
	if got != "Fees & terms – none" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestTextStripsEncodedTags(t *testing.T) {
	got := Text("&lt;script&gt;alert(1)&lt;/script&gt;safe")
	if got != "alert(1)safe" {
		t.Fatalf("expected encoded tags stripped, got %q", got)
	}
}

func TestTextDropsBlankLines(t *testing.T) {
	got := Text("a\n\n\n   \nb")
	if got != "a\nb" {
		t.Fatalf("expected blank lines dropped, got %q", got)
	}
}

func TestTextPlainPassthrough(t *testing.T) {
	got := Text("  plain text  ")
	if got != "plain text" {
		t.Fatalf("expected trimmed passthrough, got %q", got)
	}
}
