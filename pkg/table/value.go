package table

// Fragment is a renderable piece of a cell, such as a styled result box.
type Fragment interface {
	Render(width int) string
}

// FragmentFunc adapts a function to Fragment.
type FragmentFunc func(width int) string

func (f FragmentFunc) Render(width int) string { return f(width) }

// Value is a display value: plain text or a Fragment.
type Value struct {
	text string
	frag Fragment
}

// TextValue returns a plain-text Value.
func TextValue(s string) Value { return Value{text: s} }

// FragmentValue returns a Value that renders f.
func FragmentValue(f Fragment) Value { return Value{frag: f} }

// Fragment returns the fragment, ok=false for plain text.
func (v Value) Fragment() (Fragment, bool) { return v.frag, v.frag != nil }

// Render returns the cell content for width columns. Text ignores width.
func (v Value) Render(width int) string {
	if v.frag != nil {
		return v.frag.Render(width)
	}
	return v.text
}

func (v Value) String() string { return v.Render(0) }

// IsZero reports whether v is empty text.
func (v Value) IsZero() bool { return v.frag == nil && v.text == "" }
