package table

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

func TestPipelineBuiltins(t *testing.T) {
	p := NewPipeline("", nil)
	r, err := record.FromMap(map[string]any{
		"id":      3,
		"started": "2024-05-01T18:00:00Z",
		"ended":   "2024-05-01T18:30:01Z",
		"rounds":  []any{"a", "b", "c"},
		"note":    nil,
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		col  Column
		want string
	}{
		{Column{Name: "rounds", Kind: KindRounds}, "3"},
		{Column{Name: "duration", Kind: KindDuration}, "31 mins"},
		{Column{Name: "id", Kind: KindID}, "3"},
		{Column{Name: "note"}, ""},
		{Column{Name: "missing"}, ""},
		{Column{Name: "ended", Kind: KindTemporal}, time.Date(2024, 5, 1, 18, 30, 1, 0, time.UTC).Local().Format(DefaultTimeLayout)},
	}
	for _, tt := range tests {
		t.Run(tt.col.Name, func(t *testing.T) {
			slot := &Slot{}
			v, err := p.Render(tt.col, r, slot)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if v.String() != tt.want {
				t.Errorf("got %q, want %q", v.String(), tt.want)
			}
			if slot.Active() {
				t.Error("finished record must not mark the slot active")
			}
		})
	}
}

func TestPipelineInProgress(t *testing.T) {
	p := NewPipeline("", nil)
	r, _ := record.FromMap(map[string]any{"id": 1, "started": "2024-05-01T18:00:00Z", "ended": nil})

	slot := &Slot{}
	v, err := p.Render(Column{Name: "ended", Kind: KindTemporal}, r, slot)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "In Progress" {
		t.Errorf("ended = %q", v.String())
	}
	if !slot.Active() {
		t.Error("pending ended should mark the slot active")
	}

	v, _ = p.Render(Column{Name: "duration", Kind: KindDuration}, r, &Slot{})
	if v.String() != "-" {
		t.Errorf("duration while pending = %q, want -", v.String())
	}
}

func TestPipelineRawSentinels(t *testing.T) {
	p := NewPipeline("", nil)
	for _, raw := range []any{nil, "<nil>", "In Progress"} {
		r := record.New(1)
		r.Set("ended", raw)
		slot := &Slot{}
		v, err := p.Render(Column{Name: "ended", Kind: KindTemporal}, r, slot)
		if err != nil {
			t.Fatalf("%#v: %v", raw, err)
		}
		if v.String() != "In Progress" || !slot.Active() {
			t.Errorf("%#v rendered %q active=%v", raw, v.String(), slot.Active())
		}
	}
}

func TestPipelineDurationMissingStart(t *testing.T) {
	p := NewPipeline("", nil)
	r, _ := record.FromMap(map[string]any{"id": 1, "ended": "2024-05-01T18:00:00Z"})
	v, _ := p.Render(Column{Name: "duration", Kind: KindDuration}, r, &Slot{})
	if v.String() != "-" {
		t.Errorf("duration = %q, want -", v.String())
	}
}

func TestCeilMinutes(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{time.Millisecond, 1},
		{time.Minute, 1},
		{time.Minute + time.Millisecond, 2},
		{90 * time.Minute, 90},
	}
	for _, tt := range tests {
		if got := CeilMinutes(tt.d); got != tt.want {
			t.Errorf("CeilMinutes(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestPipelineCallerRule(t *testing.T) {
	var seen []string
	p := NewPipeline("", func(col Column, raw any, slot *Slot, r *record.Record) (Value, error) {
		seen = append(seen, col.Name)
		if col.Name == "users" {
			return FragmentValue(FragmentFunc(func(int) string { return "[alice bob]" })), nil
		}
		return TextValue(strings.ToUpper(FormatRaw(raw))), nil
	})
	r := record.New(2)
	r.Set("users", []any{int64(1), int64(2)})
	r.Set("game", "poker")
	r.Set("rounds", []any{1})

	v, _ := p.Render(Column{Name: "users"}, r, &Slot{})
	if _, ok := v.Fragment(); !ok || v.String() != "[alice bob]" {
		t.Errorf("users = %q", v.String())
	}
	v, _ = p.Render(Column{Name: "game"}, r, &Slot{})
	if v.String() != "POKER" {
		t.Errorf("game = %q", v.String())
	}
	v, _ = p.Render(Column{Name: "rounds", Kind: KindRounds}, r, &Slot{})
	if v.String() != "1" {
		t.Errorf("rounds = %q", v.String())
	}
	if len(seen) != 2 {
		t.Errorf("built-in rounds rule should win over the caller rule, rule saw %v", seen)
	}
}

func TestPipelineRuleError(t *testing.T) {
	p := NewPipeline("", func(Column, any, *Slot, *record.Record) (Value, error) {
		return Value{}, errBoom
	})
	_, err := p.Render(Column{Name: "game"}, record.New(9), &Slot{})
	var te *TransformError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransformError, got %v", err)
	}
	if te.Column != "game" || te.RecordID != 9 || !errors.Is(err, errBoom) {
		t.Errorf("TransformError = %+v", te)
	}
}

func TestPipelineRulePanics(t *testing.T) {
	p := NewPipeline("", func(Column, any, *Slot, *record.Record) (Value, error) {
		panic("rule defect")
	})
	defer func() {
		if recover() == nil {
			t.Error("rule panic should propagate")
		}
	}()
	_, _ = p.Render(Column{Name: "game"}, record.New(1), &Slot{})
}

func TestParseColumns(t *testing.T) {
	cols := ParseColumns("ID", " Users ", "", "Started", "Ended", "Duration", "Rounds")
	wantNames := []string{"id", "users", "started", "ended", "duration", "rounds"}
	wantKinds := []Kind{KindID, KindCustom, KindTemporal, KindTemporal, KindDuration, KindRounds}
	if len(cols) != len(wantNames) {
		t.Fatalf("got %d columns", len(cols))
	}
	for i, c := range cols {
		if c.Name != wantNames[i] || c.Kind != wantKinds[i] {
			t.Errorf("column %d = %+v", i, c)
		}
	}
	if cols[1].Label != "Users" {
		t.Errorf("label = %q", cols[1].Label)
	}
}

func TestPipelineAbsentTemporal(t *testing.T) {
	p := NewPipeline("", nil)
	r, err := record.FromMap(map[string]any{"id": 7, "started": "2024-05-01T18:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}
	slot := &Slot{}
	v, err := p.Render(Column{Name: "ended", Kind: KindTemporal}, r, slot)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "" || slot.Active() {
		t.Errorf("absent ended rendered %q active=%v", v.String(), slot.Active())
	}
}
