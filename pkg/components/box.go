package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Align controls horizontal placement of a panel title.
type Align int

const (
	// AlignLeft aligns text to the left edge (default).
	AlignLeft Align = iota
	// AlignCenter centers text horizontally.
	AlignCenter
	// AlignRight aligns text to the right edge.
	AlignRight
)

// PanelStyle controls the visual appearance of a rendered panel.
type PanelStyle struct {
	Border     lipgloss.Border
	Title      string
	TitleAlign Align
	// PadX is the blank columns inside each vertical border.
	PadX int
	// Frame styles the border characters.
	Frame lipgloss.Style
}

// DefaultPanelStyle returns rounded borders in a muted frame colour with one
// column of horizontal padding.
func DefaultPanelStyle() PanelStyle {
	return PanelStyle{
		Border: lipgloss.RoundedBorder(),
		PadX:   1,
		Frame:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// RenderPanel draws content inside a bordered panel exactly width cells wide.
// Long lines are word-wrapped to the interior and the panel grows to fit the
// content. A width under 2+2*PadX+1 returns "".
func RenderPanel(content string, width int, style PanelStyle) string {
	interior := width - 2 - 2*style.PadX
	if interior < 1 {
		return ""
	}
	b := style.Border
	frame := style.Frame.Render

	var body []string
	if content != "" {
		for _, line := range strings.Split(content, "\n") {
			body = append(body, Wrap(line, interior)...)
		}
	}
	if len(body) == 0 {
		body = []string{""}
	}

	pad := strings.Repeat(" ", style.PadX)
	var buf strings.Builder
	buf.WriteString(frame(b.TopLeft))
	buf.WriteString(renderTitleBar(style.Title, style.TitleAlign, width-2, b.Top, frame))
	buf.WriteString(frame(b.TopRight))
	for _, line := range body {
		buf.WriteByte('\n')
		buf.WriteString(frame(b.Left))
		buf.WriteString(pad)
		buf.WriteString(fitLine(line, interior))
		buf.WriteString(pad)
		buf.WriteString(frame(b.Right))
	}
	buf.WriteByte('\n')
	buf.WriteString(frame(b.BottomLeft))
	buf.WriteString(frame(strings.Repeat(b.Bottom, width-2)))
	buf.WriteString(frame(b.BottomRight))
	return buf.String()
}

// fitLine truncates or right-pads a single content line to exactly
// targetWidth visible characters.
func fitLine(line string, targetWidth int) string {
	if targetWidth <= 0 {
		return ""
	}
	if VisibleLen(line) > targetWidth {
		return Truncate(line, targetWidth)
	}
	return PadRight(line, targetWidth)
}

// renderTitleBar renders the top border with title embedded, surrounded by
// single spaces. Without room for the title the bar is plain.
func renderTitleBar(title string, align Align, barWidth int, hChar string, frame func(...string) string) string {
	maxTitleWidth := barWidth - 4 // 1 hChar + space + ... + space + 1 hChar
	if title == "" || maxTitleWidth <= 0 {
		return frame(strings.Repeat(hChar, max(barWidth, 0)))
	}

	title = TruncateWithTail(title, maxTitleWidth, "…")
	remaining := barWidth - VisibleLen(title) - 2

	var leftChars, rightChars int
	switch align {
	case AlignRight:
		rightChars = 1
		leftChars = remaining - 1
	case AlignCenter:
		leftChars = remaining / 2
		rightChars = remaining - leftChars
	default:
		leftChars = 1
		rightChars = remaining - 1
	}

	return frame(strings.Repeat(hChar, max(leftChars, 0))) +
		" " + title + " " +
		frame(strings.Repeat(hChar, max(rightChars, 0)))
}
