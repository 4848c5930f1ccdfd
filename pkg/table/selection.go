package table

// none marks an empty selection pointer.
const none = -1

// Selection tracks the active (server-declared in-progress) and selected
// (user-clicked) ordinals on independent pointers. At most one slot is
// highlighted at a time.
type Selection struct {
	surface     Surface
	size        int
	active      int
	selected    int
	highlighted int
}

// NewSelection creates an empty selection over size ordinals.
func NewSelection(surface Surface, size int) *Selection {
	return &Selection{surface: surface, size: size, active: none, selected: none, highlighted: none}
}

func (s *Selection) Active() (int, bool) { return s.active, s.active != none }
func (s *Selection) Selected() (int, bool) { return s.selected, s.selected != none }

// Highlighted returns the highlighted ordinal.
func (s *Selection) Highlighted() (int, bool) { return s.highlighted, s.highlighted != none }

// Reset is applied on every page render: selection is cleared and the active
// ordinal, if any, is highlighted.
func (s *Selection) Reset(active int) {
	s.active = s.valid(active)
	s.selected = none
	s.apply(s.active)
}

// SetActive moves the active pointer without touching the selection. The
// highlight follows the active slot only while nothing is selected.
func (s *Selection) SetActive(active int) {
	s.active = s.valid(active)
	if s.selected == none {
		s.apply(s.active)
	}
}

// Click applies the row-click transitions for ordinal r.
func (s *Selection) Click(r int) {
	if s.valid(r) == none {
		return
	}
	switch {
	case r == s.active:
		s.selected = none
		s.apply(r)
	case r == s.selected:
		s.selected = none
		s.apply(s.active)
	default:
		s.selected = r
		s.apply(r)
	}
}

// Clear drops both pointers and every highlight.
func (s *Selection) Clear() {
	s.active = none
	s.selected = none
	s.apply(none)
}

func (s *Selection) valid(ordinal int) int {
	if ordinal < 0 || ordinal >= s.size {
		return none
	}
	return ordinal
}

func (s *Selection) apply(target int) {
	s.highlighted = target
	for i := 0; i < s.size; i++ {
		s.surface.SetHighlight(i, i == target)
	}
}
