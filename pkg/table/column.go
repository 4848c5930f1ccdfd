package table

import "strings"

// Kind selects the built-in transform rule for a column.
type Kind int

const (
	// KindCustom columns are rendered by the caller's rule.
	KindCustom Kind = iota
	KindID
	KindTemporal
	KindDuration
	KindRounds
)

func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindTemporal:
		return "temporal"
	case KindDuration:
		return "duration"
	case KindRounds:
		return "rounds"
	}
	return "custom"
}

// Column is one rendered column. Name is the record key it reads.
type Column struct {
	Name  string
	Label string
	Kind  Kind
}

var builtinKinds = map[string]Kind{
	"id":       KindID,
	"started":  KindTemporal,
	"ended":    KindTemporal,
	"duration": KindDuration,
	"rounds":   KindRounds,
}

// ParseColumns derives columns from header labels. Names are the trimmed,
// lower-cased labels; blank labels are skipped.
func ParseColumns(labels ...string) []Column {
	cols := make([]Column, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		name := strings.ToLower(label)
		cols = append(cols, Column{Name: name, Label: label, Kind: builtinKinds[name]})
	}
	return cols
}
