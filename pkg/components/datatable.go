package components

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// ---------------------------------------------------------------------------
// Column alignment
// ---------------------------------------------------------------------------

// ColumnAlign controls horizontal text alignment within a table cell.
type ColumnAlign int

const (
	ColAlignLeft ColumnAlign = iota
	ColAlignCenter
	ColAlignRight
)

// ---------------------------------------------------------------------------
// Column sizing
// ---------------------------------------------------------------------------

// SizingKind discriminates the three column sizing strategies.
type SizingKind int

const (
	sizingFixed   SizingKind = iota
	sizingPercent            // percentage of total width
	sizingFill               // takes remaining space
)

// ColumnSizing describes how a column's width is computed.
type ColumnSizing struct {
	Kind  SizingKind
	Value int // width for Fixed, percentage 1-100 for Percent, unused for Fill
}

// SizingFixed returns a ColumnSizing that allocates exactly width characters.
func SizingFixed(width int) ColumnSizing {
	return ColumnSizing{Kind: sizingFixed, Value: max(width, 0)}
}

// SizingPercent returns a ColumnSizing that allocates pct% of available width.
func SizingPercent(pct int) ColumnSizing {
	return ColumnSizing{Kind: sizingPercent, Value: min(max(pct, 0), 100)}
}

// SizingFill returns a ColumnSizing that shares remaining space equally with
// other Fill columns.
func SizingFill() ColumnSizing {
	return ColumnSizing{Kind: sizingFill}
}

// ---------------------------------------------------------------------------
// Column and styles
// ---------------------------------------------------------------------------

// Column is one display column of a SlotTable. Key is the engine column name
// the cells arrive under.
type Column struct {
	Key      string
	Title    string
	Sizing   ColumnSizing
	Align    ColumnAlign
	MinWidth int
}

// SlotTableStyles are the lipgloss styles applied per row state.
type SlotTableStyles struct {
	Header    lipgloss.Style
	Row       lipgloss.Style
	Active    lipgloss.Style
	Highlight lipgloss.Style
	Focus     lipgloss.Style
	Empty     lipgloss.Style
}

// DefaultSlotTableStyles returns the stock palette: bold header, green active
// row, inverted highlight.
func DefaultSlotTableStyles() SlotTableStyles {
	return SlotTableStyles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Row:       lipgloss.NewStyle(),
		Active:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")),
		Highlight: lipgloss.NewStyle().Reverse(true),
		Focus:     lipgloss.NewStyle().Underline(true),
		Empty:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// SlotTableConfig is the configuration used to construct a SlotTable.
type SlotTableConfig struct {
	Columns []Column
	Styles  *SlotTableStyles
	// ShowBorder draws a separator between columns on wide terminals.
	ShowBorder bool
	BorderChar string
	// HeaderSepChar fills the line under the header.
	HeaderSepChar string
	// Zones marks each visible row for mouse hit testing when non-nil.
	Zones *zone.Manager
	// ZonePrefix namespaces the row zone ids.
	ZonePrefix string
}

// ---------------------------------------------------------------------------
// SlotTable
// ---------------------------------------------------------------------------

type slotState struct {
	visible   bool
	active    bool
	highlight bool
	id        string
	cells     map[string]table.Value
}

// SlotTable is a terminal rendering surface for a table engine. Rows are a
// fixed set of slots created once and re-bound in place, and the pagination
// controls are tracked alongside. It implements table.Surface and
// table.Controls.
type SlotTable struct {
	mu         sync.Mutex
	columns    []Column
	styles     SlotTableStyles
	showBorder bool
	borderChar string
	headerSep  string
	zones      *zone.Manager
	zonePrefix string

	slots    map[int]*slotState
	handlers map[int]func()
	focus    int

	prevEnabled bool
	nextEnabled bool
	page        int
	maxPage     int
}

// NewSlotTable creates a SlotTable from cfg.
func NewSlotTable(cfg SlotTableConfig) *SlotTable {
	border := cfg.BorderChar
	if border == "" {
		border = "│"
	}
	sep := cfg.HeaderSepChar
	if sep == "" {
		sep = "─"
	}
	styles := DefaultSlotTableStyles()
	if cfg.Styles != nil {
		styles = *cfg.Styles
	}
	prefix := cfg.ZonePrefix
	if prefix == "" {
		prefix = "row-"
	}
	return &SlotTable{
		columns:    cfg.Columns,
		styles:     styles,
		showBorder: cfg.ShowBorder,
		borderChar: border,
		headerSep:  sep,
		zones:      cfg.Zones,
		zonePrefix: prefix,
		slots:      map[int]*slotState{},
		handlers:   map[int]func(){},
		focus:      -1,
		page:       1,
		maxPage:    1,
	}
}

// ColumnsFor builds fill-sized columns for engine column labels. The key
// is the lowercased label, matching the engine's column names.
func ColumnsFor(labels ...string) []Column {
	cols := make([]Column, 0, len(labels))
	for _, l := range labels {
		key := strings.ToLower(strings.TrimSpace(l))
		if key == "" {
			continue
		}
		c := Column{Key: key, Title: l, Sizing: SizingFill(), MinWidth: 3}
		switch key {
		case "id":
			c.Sizing = SizingFixed(6)
			c.Align = ColAlignRight
		case "duration", "rounds", "sessions":
			c.Sizing = SizingFixed(10)
			c.Align = ColAlignRight
		}
		cols = append(cols, c)
	}
	return cols
}

func (t *SlotTable) slot(ordinal int) *slotState {
	s, ok := t.slots[ordinal]
	if !ok {
		s = &slotState{cells: map[string]table.Value{}}
		t.slots[ordinal] = s
	}
	return s
}

func (t *SlotTable) CreateSlot(ordinal int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slot(ordinal)
}

func (t *SlotTable) ShowSlot(ordinal int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slot(ordinal).visible = true
}

func (t *SlotTable) HideSlot(ordinal int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slot(ordinal).visible = false
}

func (t *SlotTable) SetCell(ordinal int, column string, v table.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slot(ordinal).cells[column] = v
}

func (t *SlotTable) SetSlotID(ordinal int, rowID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slot(ordinal).id = rowID
}

func (t *SlotTable) SetSlotActive(ordinal int, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slot(ordinal).active = active
}

func (t *SlotTable) SetHighlight(ordinal int, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slot(ordinal).highlight = on
}

func (t *SlotTable) OnRowClick(ordinal int, handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[ordinal] = handler
}

func (t *SlotTable) SetPrevEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prevEnabled = enabled
}

func (t *SlotTable) SetNextEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextEnabled = enabled
}

func (t *SlotTable) SetPage(current, maxPage int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.page = current
	t.maxPage = max(maxPage, 1)
}

// PrevEnabled reports the previous control state.
func (t *SlotTable) PrevEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prevEnabled
}

// NextEnabled reports the next control state.
func (t *SlotTable) NextEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextEnabled
}

// Page returns the page indicator.
func (t *SlotTable) Page() (current, maxPage int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page, t.maxPage
}

// VisibleOrdinals returns the visible slots in display order.
func (t *SlotTable) VisibleOrdinals() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visibleLocked()
}

func (t *SlotTable) visibleLocked() []int {
	out := make([]int, 0, len(t.slots))
	for ord, s := range t.slots {
		if s.visible {
			out = append(out, ord)
		}
	}
	sort.Ints(out)
	return out
}

// Highlighted returns the highlighted visible ordinal, or -1.
func (t *SlotTable) Highlighted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ord := range t.visibleLocked() {
		if t.slots[ord].highlight {
			return ord
		}
	}
	return -1
}

// RowID returns the row id bound to ordinal.
func (t *SlotTable) RowID(ordinal int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.slots[ordinal]; ok {
		return s.id
	}
	return ""
}

// Cell returns the value of column key in ordinal.
func (t *SlotTable) Cell(ordinal int, key string) table.Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.slots[ordinal]; ok {
		return s.cells[key]
	}
	return table.Value{}
}

// Click invokes the click handler of a visible slot. It reports whether a
// handler ran. The handler runs without the table lock held because it
// calls back into the surface.
func (t *SlotTable) Click(ordinal int) bool {
	t.mu.Lock()
	s, ok := t.slots[ordinal]
	fn := t.handlers[ordinal]
	visible := ok && s.visible
	t.mu.Unlock()
	if !visible || fn == nil {
		return false
	}
	fn()
	return true
}

// Focus returns the keyboard-focused ordinal, or -1 when no visible slot
// has focus.
func (t *SlotTable) Focus() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.slots[t.focus]; ok && s.visible {
		return t.focus
	}
	return -1
}

// MoveFocus moves keyboard focus delta visible rows, clamped to the first
// and last visible row. Without focus it starts at the highlighted row, or
// the first row.
func (t *SlotTable) MoveFocus(delta int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	visible := t.visibleLocked()
	if len(visible) == 0 {
		t.focus = -1
		return -1
	}
	idx := -1
	for i, ord := range visible {
		if ord == t.focus {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = 0
		for i, ord := range visible {
			if t.slots[ord].highlight {
				idx = i
				break
			}
		}
		delta = 0
	}
	idx = min(max(idx+delta, 0), len(visible)-1)
	t.focus = visible[idx]
	return t.focus
}

// ClickFocused clicks the focused row.
func (t *SlotTable) ClickFocused() bool {
	ord := t.Focus()
	if ord < 0 {
		return false
	}
	return t.Click(ord)
}

// HandleMouse clicks the row under a left-button release. A table without
// zones never matches.
func (t *SlotTable) HandleMouse(msg tea.MouseMsg) bool {
	if t.zones == nil || msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return false
	}
	for _, ord := range t.VisibleOrdinals() {
		if t.zones.Get(t.zoneID(ord)).InBounds(msg) {
			return t.Click(ord)
		}
	}
	return false
}

func (t *SlotTable) zoneID(ordinal int) string {
	return fmt.Sprintf("%s%d", t.zonePrefix, ordinal)
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// Render draws the header plus every visible slot, one line each, width
// visible characters wide. A table with no visible slots shows "(no data)".
func (t *SlotTable) Render(width int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if width <= 0 {
		return ""
	}

	colWidths := t.resolveWidths(width)
	lines := []string{
		t.styles.Header.Render(t.renderCells(colWidths, width, func(c Column, _ int) string { return c.Title })),
		t.renderSeparator(colWidths, width),
	}

	visible := t.visibleLocked()
	if len(visible) == 0 {
		lines = append(lines, t.styles.Empty.Render(PadCenter(TruncateWithTail("(no data)", width, "…"), width)))
		return strings.Join(lines, "\n")
	}

	for _, ord := range visible {
		s := t.slots[ord]
		line := t.renderCells(colWidths, width, func(c Column, w int) string {
			return s.cells[c.Key].Render(w)
		})
		style := t.styles.Row
		if s.active {
			style = t.styles.Active
		}
		if s.highlight {
			style = t.styles.Highlight.Inherit(style)
		}
		if ord == t.focus {
			style = t.styles.Focus.Inherit(style)
		}
		line = style.Render(line)
		if t.zones != nil {
			line = t.zones.Mark(t.zoneID(ord), line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderCells lays out one line, cell(c, w) producing the raw content of
// column c at width w.
func (t *SlotTable) renderCells(colWidths []int, totalWidth int, cell func(Column, int) string) string {
	var sb strings.Builder
	used := 0
	for i, col := range t.columns {
		if i >= len(colWidths) {
			break
		}
		w := colWidths[i]
		if w <= 0 {
			continue
		}
		if i > 0 && t.bordered(totalWidth) {
			sb.WriteString(t.borderChar)
			used++
		}
		// Multi-line fragments collapse to their first line in a row.
		content, _, _ := strings.Cut(cell(col, w), "\n")
		content = TruncateWithTail(content, w, "…")
		sb.WriteString(alignVisible(content, w, col.Align))
		used += w
	}
	if used < totalWidth {
		sb.WriteString(strings.Repeat(" ", totalWidth-used))
	}
	return sb.String()
}

func (t *SlotTable) renderSeparator(colWidths []int, totalWidth int) string {
	var sb strings.Builder
	used := 0
	for i, w := range colWidths {
		if w <= 0 {
			continue
		}
		if i > 0 && t.bordered(totalWidth) {
			sb.WriteString("┼")
			used++
		}
		sb.WriteString(strings.Repeat(t.headerSep, w))
		used += w
	}
	if used < totalWidth {
		sb.WriteString(strings.Repeat(t.headerSep, totalWidth-used))
	}
	return Truncate(sb.String(), totalWidth)
}

func (t *SlotTable) bordered(totalWidth int) bool {
	return t.showBorder && totalWidth >= 20
}

func alignVisible(s string, width int, align ColumnAlign) string {
	switch align {
	case ColAlignRight:
		return PadLeft(s, width)
	case ColAlignCenter:
		return PadCenter(s, width)
	default:
		return PadRight(s, width)
	}
}

// ---------------------------------------------------------------------------
// Column width resolution
// ---------------------------------------------------------------------------

func (t *SlotTable) resolveWidths(totalWidth int) []int {
	n := len(t.columns)
	if n == 0 {
		return nil
	}

	widths := make([]int, n)

	sepOverhead := 0
	if t.bordered(totalWidth) {
		sepOverhead = n - 1
	}
	available := max(totalWidth-sepOverhead, 0)

	// Pass 1: Fixed columns.
	remaining := available
	for i, col := range t.columns {
		if col.Sizing.Kind == sizingFixed {
			w := min(col.Sizing.Value, remaining)
			widths[i] = w
			remaining -= w
		}
	}

	// Pass 2: Percentage columns.
	for i, col := range t.columns {
		if col.Sizing.Kind == sizingPercent {
			w := min((available*col.Sizing.Value)/100, remaining)
			widths[i] = w
			remaining -= w
		}
	}

	// Pass 3: Fill columns share remaining space equally.
	fillCount := 0
	for _, col := range t.columns {
		if col.Sizing.Kind == sizingFill {
			fillCount++
		}
	}
	if fillCount > 0 && remaining > 0 {
		each := remaining / fillCount
		extra := remaining % fillCount
		filled := 0
		for i, col := range t.columns {
			if col.Sizing.Kind == sizingFill {
				w := each
				if filled < extra {
					w++
				}
				widths[i] = w
				filled++
			}
		}
	}

	// Pass 4: Enforce MinWidth by stealing from Fill columns, right to left.
	for i, col := range t.columns {
		if col.MinWidth > 0 && widths[i] < col.MinWidth {
			deficit := col.MinWidth - widths[i]
			widths[i] = col.MinWidth
			for j := n - 1; j >= 0 && deficit > 0; j-- {
				if j == i || t.columns[j].Sizing.Kind != sizingFill {
					continue
				}
				canSteal := widths[j] - t.columns[j].MinWidth
				if canSteal <= 0 {
					continue
				}
				steal := min(deficit, canSteal)
				widths[j] -= steal
				deficit -= steal
			}
		}
	}

	// Pass 5: If total exceeds available width, truncate from rightmost Fill.
	totalUsed := 0
	for _, w := range widths {
		totalUsed += w
	}
	if totalUsed > available {
		excess := totalUsed - available
		for i := n - 1; i >= 0 && excess > 0; i-- {
			if t.columns[i].Sizing.Kind != sizingFill {
				continue
			}
			canCut := widths[i] - t.columns[i].MinWidth
			if canCut <= 0 {
				continue
			}
			cut := min(excess, canCut)
			widths[i] -= cut
			excess -= cut
		}
	}

	return widths
}
