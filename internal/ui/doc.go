// Package ui renders command output for the terminal.
//
// Styling comes from a small lipgloss [Palette] (status glyphs for matched, ambiguous and unmatched tracks),
// summaries and track listings are go-pretty tables, and [ProgressPrinter] turns the orchestrators'
// progress callbacks into line output.
package ui
