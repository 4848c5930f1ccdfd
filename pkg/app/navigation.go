package app

import "gitlab.com/tinyland/lab/wagerboard/pkg/pages"

// Stack is the view history: the sessions list at the bottom and drilled
// down views above it.
type Stack struct {
	views []*pages.View
}

// Push makes v the current view.
func (s *Stack) Push(v *pages.View) {
	if v != nil {
		s.views = append(s.views, v)
	}
}

// Pop returns to the previous view. The root view is never popped.
func (s *Stack) Pop() bool {
	if len(s.views) <= 1 {
		return false
	}
	s.views[len(s.views)-1] = nil
	s.views = s.views[:len(s.views)-1]
	return true
}

// Current returns the top view, or nil for an empty stack.
func (s *Stack) Current() *pages.View {
	if len(s.views) == 0 {
		return nil
	}
	return s.views[len(s.views)-1]
}

// Replace swaps old for v in place. It reports false when old is not on the
// stack.
func (s *Stack) Replace(old, v *pages.View) bool {
	for i, cur := range s.views {
		if cur == old {
			s.views[i] = v
			return true
		}
	}
	return false
}

// Contains reports whether v is on the stack.
func (s *Stack) Contains(v *pages.View) bool {
	for _, cur := range s.views {
		if cur == v {
			return true
		}
	}
	return false
}

// Depth is the number of views on the stack.
func (s *Stack) Depth() int { return len(s.views) }

// Titles returns the view titles bottom to top, for a breadcrumb.
func (s *Stack) Titles() []string {
	out := make([]string, len(s.views))
	for i, v := range s.views {
		out[i] = v.Title
	}
	return out
}
