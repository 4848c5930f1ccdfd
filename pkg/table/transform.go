package table

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// DefaultTimeLayout formats concrete temporal values in local time.
const DefaultTimeLayout = "2006-01-02 15:04"

// Rule renders a column the built-in rules do not cover. slot is the row
// being bound; rules may call slot.MarkActive and nothing else on it.
type Rule func(col Column, raw any, slot *Slot, rec *record.Record) (Value, error)

// Pipeline turns raw record fields into display values. Built-in rules are
// evaluated before the caller's rule.
type Pipeline struct {
	Layout     string
	StartField string
	EndField   string
	Rule       Rule
}

// NewPipeline returns a pipeline reading "started"/"ended" for durations.
func NewPipeline(layout string, rule Rule) *Pipeline {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return &Pipeline{Layout: layout, StartField: "started", EndField: "ended", Rule: rule}
}

// Render produces the display value of col for rec. A pending temporal value
// in any column marks slot active. A temporal column absent from rec renders
// empty and never marks the slot.
func (p *Pipeline) Render(col Column, rec *record.Record, slot *Slot) (Value, error) {
	raw := rec.Value(col.Name)

	if t, ok := raw.(record.Temporal); ok {
		return p.temporal(t, slot), nil
	}

	switch col.Kind {
	case KindTemporal:
		// Only a present null or marker is pending. An absent field is unknown.
		if _, present := rec.Get(col.Name); !present {
			return TextValue(""), nil
		}
		t, err := record.ParseTemporal(raw)
		if err != nil {
			return Value{}, &TransformError{Column: col.Name, RecordID: rec.ID, Err: err}
		}
		return p.temporal(t, slot), nil
	case KindDuration:
		return TextValue(p.duration(rec)), nil
	case KindRounds:
		switch v := raw.(type) {
		case []any:
			return TextValue(strconv.Itoa(len(v))), nil
		case []*record.Record:
			return TextValue(strconv.Itoa(len(v))), nil
		case int, int64, float64:
			return TextValue(FormatRaw(v)), nil
		}
	}

	if p.Rule != nil {
		v, err := p.Rule(col, raw, slot, rec)
		if err != nil {
			return Value{}, &TransformError{Column: col.Name, RecordID: rec.ID, Err: err}
		}
		return v, nil
	}
	switch v := raw.(type) {
	case Value:
		return v, nil
	case Fragment:
		return FragmentValue(v), nil
	}
	return TextValue(FormatRaw(raw)), nil
}

func (p *Pipeline) temporal(t record.Temporal, slot *Slot) Value {
	at, ok := t.Time()
	if !ok {
		if slot != nil {
			slot.MarkActive()
		}
		return TextValue(record.InProgressLabel)
	}
	return TextValue(at.Local().Format(p.Layout))
}

// duration renders whole minutes rounded up, or "-" while the end is pending
// or the start is unknown.
func (p *Pipeline) duration(rec *record.Record) string {
	end, ok := temporalField(rec, p.EndField)
	if !ok {
		return "-"
	}
	start, ok := temporalField(rec, p.StartField)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d mins", CeilMinutes(end.Sub(start)))
}

func temporalField(rec *record.Record, name string) (time.Time, bool) {
	t, ok := rec.Temporal(name)
	if !ok {
		parsed, err := record.ParseTemporal(rec.Value(name))
		if err != nil {
			return time.Time{}, false
		}
		t = parsed
	}
	return t.Time()
}

// CeilMinutes rounds d up to whole minutes at millisecond precision.
func CeilMinutes(d time.Duration) int {
	return int(math.Ceil(float64(d.Milliseconds()) / 60000))
}

// FormatRaw formats a raw field value unchanged. nil is empty.
func FormatRaw(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(raw)
}
