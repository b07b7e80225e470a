package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nid: \"abc\"\ntitle: Hello\ntags:\n  - fleeting\n---\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "abc" {
		t.Errorf("id = %q, want %q", r.ID(), "abc")
	}
	if r.Title() != "Hello" {
		t.Errorf("title = %q, want %q", r.Title(), "Hello")
	}
	if r.Body != "Body text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Body != string(input) {
		t.Errorf("body = %q, want full content", r.Body)
	}
	if r.ID() != "" {
		t.Errorf("id = %q, want empty", r.ID())
	}
}

func TestParse_DelimiterNotAtByteZero(t *testing.T) {
	// A block preceded by anything, even a blank line, is body text.
	input := []byte("\n---\nid: \"abc\"\n---\nbody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
}

func TestParse_NoClosingDelimiter(t *testing.T) {
	input := []byte("---\nid: \"abc\"\nno closing fence\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter without closing delimiter")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q, want full content", r.Body)
	}
}

func TestParse_InvalidYAMLIsError(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	_, err := Parse(input)
	if err == nil {
		t.Fatal("expected error for malformed yaml in a recognized block")
	}
	if !strings.Contains(err.Error(), "invalid yaml") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParse_CRLF(t *testing.T) {
	input := []byte("---\r\nid: \"abc\"\r\n---\r\nbody\r\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "abc" {
		t.Errorf("id = %q, want %q", r.ID(), "abc")
	}
}

func TestParse_NonStringID(t *testing.T) {
	// A numeric id is not a string value; the file stays invisible to sync.
	input := []byte("---\nid: 42\n---\nbody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "" {
		t.Errorf("id = %q, want empty for non-string value", r.ID())
	}
}

func TestParse_ListsAndNestedValues(t *testing.T) {
	input := []byte("---\nid: \"x\"\ntags:\n  - a\n  - b\nsource: \"https://example.com\"\n---\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Source() != "https://example.com" {
		t.Errorf("source = %q", r.Source())
	}
	if _, ok := r.Frontmatter["tags"].([]interface{}); !ok {
		t.Errorf("tags not parsed as list: %v", r.Frontmatter["tags"])
	}
}

func TestHasTitle(t *testing.T) {
	withTitle, _ := Parse([]byte("---\nid: \"x\"\ntitle: Old\n---\n"))
	if !withTitle.HasTitle() {
		t.Error("expected HasTitle true")
	}
	without, _ := Parse([]byte("---\nid: \"x\"\n---\n"))
	if without.HasTitle() {
		t.Error("expected HasTitle false")
	}
}

func TestParse_BodyAfterDelimiterKeptVerbatim(t *testing.T) {
	input := []byte("---\nid: \"x\"\n---\nline one\n---\nline two\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the first closing delimiter terminates the block.
	if r.Body != "line one\n---\nline two\n" {
		t.Errorf("body = %q", r.Body)
	}
}
