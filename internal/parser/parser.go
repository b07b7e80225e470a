// Package parser extracts the front-matter block and body from note files.
package parser

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a note file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
}

// ID returns the front-matter "id" value, or "" when absent. Only files
// with an id take part in synchronization.
func (r *Result) ID() string { return r.stringField("id") }

// Title returns the front-matter "title" value, or "" when absent.
func (r *Result) Title() string { return r.stringField("title") }

// Source returns the front-matter "source" value, or "" when absent.
func (r *Result) Source() string { return r.stringField("source") }

// HasTitle reports whether the front matter carries a title key with a
// non-empty string value.
func (r *Result) HasTitle() bool {
	return r.stringField("title") != ""
}

func (r *Result) stringField(key string) string {
	if r.Frontmatter == nil {
		return ""
	}
	v, ok := r.Frontmatter[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Parse splits raw note content into front matter and body.
//
// A front-matter block is recognized only when the file starts, at byte 0,
// with a line containing exactly "---", followed by a YAML mapping and a
// closing "---" line. Files without such a block get empty metadata and the
// whole content as body. A recognized block that fails to parse as YAML is
// an error: the caller decides whether to abort the surrounding scan.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{Frontmatter: fm, Body: body}, nil
}

func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	delim := []byte("---")

	if !startsWithDelim(data, delim) {
		return nil, string(data), nil
	}

	rest := data[len(delim):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] == '\n' {
		rest = rest[1:]
	}

	end := closingDelimIndex(rest, delim)
	if end.start < 0 {
		// No closing delimiter: not a front-matter block.
		return nil, string(data), nil
	}

	yamlBlock := rest[:end.start]
	body := rest[end.bodyStart:]

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, "", fmt.Errorf("invalid yaml: %w", err)
	}
	return fm, string(body), nil
}

// startsWithDelim reports whether data begins with the delimiter as a full
// line at byte 0 (no leading whitespace tolerated).
func startsWithDelim(data, delim []byte) bool {
	if !bytes.HasPrefix(data, delim) {
		return false
	}
	rest := data[len(delim):]
	return len(rest) == 0 || rest[0] == '\n' || rest[0] == '\r'
}

type delimPos struct {
	start     int // offset of the closing delimiter line in rest
	bodyStart int // offset of the first body byte after that line
}

// closingDelimIndex finds the next line that consists of exactly the
// delimiter. Returns a negative result when none exists.
func closingDelimIndex(rest, delim []byte) delimPos {
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest)
		if lineEnd >= 0 {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = rest[offset:]
		}
		if bytes.Equal(bytes.TrimRight(line, "\r"), delim) {
			return delimPos{start: offset, bodyStart: next}
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}
	return delimPos{start: -1, bodyStart: -1}
}
