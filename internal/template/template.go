// Package template renders note records into file text via placeholder
// substitution.
package template

import (
	"regexp"

	"github.com/fleetingnotes/fleeting-sync/internal/models"
)

// DefaultTemplate is the note layout written when the user has not
// customized the template. Re-parsing its front matter recovers the id.
const DefaultTemplate = `---
id: "${id}"
title: "${title}"
source: "${source}"
created_date: "${datetime}"
modified_date: "${datetime}"
---
${content}
`

var placeholderRe = regexp.MustCompile(`\$\{(id|title|content|source|datetime)\}`)

// Render substitutes every placeholder occurrence with the note's
// corresponding field. Substitution is a single pass over the template, so
// placeholder syntax inside note content is inserted verbatim and never
// re-interpreted. Unknown placeholders are left untouched.
func Render(tmpl string, note models.Note) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		switch m {
		case "${id}":
			return note.ID
		case "${title}":
			return note.Title
		case "${content}":
			return note.Content
		case "${source}":
			return note.Source
		case "${datetime}":
			return datePart(note.Timestamp())
		}
		return m
	})
}

// datePart returns the YYYY-MM-DD prefix of an ISO-8601 timestamp.
func datePart(ts string) string {
	if len(ts) < 10 {
		return ts
	}
	return ts[:10]
}
