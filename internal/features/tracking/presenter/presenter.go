// Package presenter renders tracking outcomes as Telegram MarkdownV2 text.
package presenter

import (
	"strings"

	"resi-tracker/internal/features/tracking/domain"
)

// trackingEscaper escapes the characters that break MarkdownV2 in a rendered history table.
var trackingEscaper = strings.NewReplacer(
	`|`, `\|`,
	`-`, `\-`,
	`(`, `\(`,
	`)`, `\)`,
	`.`, `\.`,
)

// markdownV2Escaper escapes every character MarkdownV2 reserves outside entities.
var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, "\\~",
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// Format renders an outcome for the chat reply. Failures are returned verbatim for a
// plain-text reply; successes become an escaped pipe table for a MarkdownV2 reply.
func Format(outcome domain.Outcome) string {
	if !outcome.Success {
		return outcome.Reason
	}
	return EscapeTrackingText(RenderTable(outcome.History))
}

// RenderTable renders rows as a pipe table: header, separator, then data rows.
// Columns are not padded.
func RenderTable(table domain.HistoryTable) string {
	if len(table) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow(&b, table[0])

	sep := make([]string, len(table[0]))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)

	for _, row := range table[1:] {
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

// EscapeTrackingText prefixes every | - ( ) . with a backslash.
// It is not idempotent: escaping an already escaped string escapes it again.
func EscapeTrackingText(s string) string {
	return trackingEscaper.Replace(s)
}

// EscapeMarkdownV2 escapes s for use as plain text inside a MarkdownV2 message.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// ExpeditionList renders the available-carriers help text. firstLine, when not empty, is
// escaped and placed above the list.
func ExpeditionList(names []string, firstLine string) string {
	var b strings.Builder
	if firstLine != "" {
		b.WriteString(EscapeMarkdownV2(firstLine))
		b.WriteString("\n\n")
	}

	b.WriteString("*Here are the available expeditions:*\n")
	for _, name := range names {
		b.WriteString("\n\\- *")
		b.WriteString(EscapeMarkdownV2(capitalize(name)))
		b.WriteString("*")
	}
	return b.String()
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
