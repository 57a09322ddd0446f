package prompts

import (
	"fmt"
	"strings"
)

// EntryKind says how a rule-block line is rendered.
type EntryKind int

const (
	// Numbered entries take the next number.
	Numbered EntryKind = iota
	// Bullet entries are written verbatim and keep the numbering where it was.
	Bullet
	// Plain entries are written verbatim and keep the numbering where it was.
	Plain
	// Blank entries emit an empty line.
	Blank
)

// BulletGlyph prefixes bullet entries.
const BulletGlyph = "•"

// Entry is one line of a rule block.
type Entry struct {
	Kind EntryKind
	Text string
}

// Item is a numbered rule.
func Item(text string) Entry { return Entry{Kind: Numbered, Text: text} }

// Itemf is a formatted numbered rule.
func Itemf(format string, args ...any) Entry { return Item(fmt.Sprintf(format, args...)) }

// BulletItem is a bullet line under a plain header.
func BulletItem(text string) Entry { return Entry{Kind: Bullet, Text: BulletGlyph + " " + text} }

// PlainLine is an unnumbered line, such as a sub-list header.
func PlainLine(text string) Entry { return Entry{Kind: Plain, Text: text} }

// BlankLine separates groups inside a block.
func BlankLine() Entry { return Entry{Kind: Blank} }

// Classify infers the kind of a raw line: empty lines are blank, lines
// starting with the bullet glyph are bullets, everything else is numbered.
func Classify(line string) Entry {
	switch {
	case line == "":
		return BlankLine()
	case strings.HasPrefix(line, BulletGlyph):
		return Entry{Kind: Bullet, Text: line}
	}
	return Item(line)
}

// FormatList renders entries one per line. Numbering counts only numbered
// entries, so bullets and blank lines never leave gaps.
func FormatList(entries []Entry) string {
	var builder strings.Builder
	n := 0
	for _, e := range entries {
		switch e.Kind {
		case Numbered:
			n++
			builder.WriteString(fmt.Sprintf("%d. %s\n", n, e.Text))
		case Blank:
			builder.WriteString("\n")
		default:
			builder.WriteString(e.Text)
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// FormatLines classifies raw lines and renders them with FormatList.
func FormatLines(lines []string) string {
	entries := make([]Entry, len(lines))
	for i, l := range lines {
		entries[i] = Classify(l)
	}
	return FormatList(entries)
}

// CountNumbered returns how many entries take a number.
func CountNumbered(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Kind == Numbered {
			n++
		}
	}
	return n
}

// joinList writes a comma-separated list.
func joinList(items []string) string {
	return strings.Join(items, ", ")
}
