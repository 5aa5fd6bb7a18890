package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"honnef.co/go/stuff/math/mathutil"

	"honnef.co/go/spanprof/color"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

var printer = message.NewPrinter(language.English)

func count[T ~int | ~uint32](n T) string { return printer.Sprintf("%d", n) }

func duration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}

func durationf(ns float64) string {
	return duration(time.Duration(ns))
}

func swatch(c color.Packed, s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(s)
}

func dimmed(c color.Packed) color.Packed {
	return color.Disabled(c.Oklch()).Pack()
}

// bar renders a horizontal bar whose length is v relative to limit.
func bar(v, limit time.Duration, width int) string {
	if limit <= 0 || v <= 0 {
		return ""
	}
	n := mathutil.Lerp(0, width, float64(v)/float64(limit))
	return strings.Repeat("█", n)
}

func renderTable(w io.Writer, title string, headers []string, rows [][]string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t)
}
