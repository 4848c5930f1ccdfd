package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/wagerboard/pkg/components"
	"gitlab.com/tinyland/lab/wagerboard/pkg/pages"
)

const (
	colorAccent = "#7C3AED"
	colorDim    = "#6B7280"
	colorError  = "#EF4444"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError))
)

// defaultWidth is used until the first WindowSizeMsg arrives.
const defaultWidth = 80

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.Current()
	if v == nil {
		return "no view\n"
	}
	m.syncKeys()
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder
	b.WriteString(renderTitleBar(m.stack.Titles(), m.spinnerView(), width))
	b.WriteString("\n")
	b.WriteString(v.Table.Render(width))
	b.WriteString("\n")
	if detail := renderDetail(v, width); detail != "" {
		b.WriteString(detail)
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter(v, width))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	out := b.String()
	if m.opts.Zones != nil {
		out = m.opts.Zones.Scan(out)
	}
	return out
}

func (m *Model) spinnerView() string {
	if m.pending == 0 {
		return ""
	}
	return m.spinner.View()
}

// renderTitleBar renders the breadcrumb of open views and the in-flight
// spinner.
func renderTitleBar(titles []string, spin string, width int) string {
	line := titleStyle.Render(strings.Join(titles, " › "))
	if spin != "" {
		line += " " + spin
	}
	return components.Truncate(line, width)
}

// renderDetail renders the result panel of the selected or active row.
func renderDetail(v *pages.View, width int) string {
	title, body := v.Detail()
	if title == "" {
		return ""
	}
	style := components.DefaultPanelStyle()
	style.Title = title
	return components.RenderPanel(body, min(width, 60), style)
}

// renderFooter renders the page indicator and the status: the last error, or
// the current query state.
func (m *Model) renderFooter(v *pages.View, width int) string {
	cur, last := v.Table.Page()
	m.pager.TotalPages = last
	m.pager.Page = cur - 1
	if last > 10 {
		m.pager.Type = paginator.Arabic
	} else {
		m.pager.Type = paginator.Dots
	}
	indicator := fmt.Sprintf("%s  page %d of %d", m.pager.View(), cur, last)
	if v.Total() == 0 && v.Table.NextEnabled() {
		indicator = fmt.Sprintf("%s  page %d", m.pager.View(), cur)
	}

	status := dimStyle.Render("?" + v.Query.Encode())
	if m.err != nil {
		status = errorStyle.Render(statusError(m.err))
	}
	return renderStatusBar(indicator, status, width)
}

// renderStatusBar joins the indicator and the status, truncated to width.
func renderStatusBar(indicator, status string, width int) string {
	if width <= 0 {
		return ""
	}
	line := indicator
	if status != "" {
		line += "  |  " + status
	}
	return components.PadRight(components.TruncateWithTail(line, width, "…"), width)
}
