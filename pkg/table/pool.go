package table

import (
	"fmt"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// Slot is one position-stable row. Its ordinal never changes; only the bound
// record does.
type Slot struct {
	ordinal int
	visible bool
	active  bool
	rowID   string
	record  *record.Record
	cells   map[string]Value
}

func (s *Slot) Ordinal() int { return s.ordinal }

// Visible reports whether the slot is shown.
func (s *Slot) Visible() bool { return s.visible }

// Active reports whether the bound record is in progress.
func (s *Slot) Active() bool { return s.active }

// MarkActive flags the slot as holding the in-progress record.
func (s *Slot) MarkActive() { s.active = true }

// RowID is the stable id derived from the bound record, empty when hidden.
func (s *Slot) RowID() string { return s.rowID }

// Record is the bound record, nil when hidden.
func (s *Slot) Record() *record.Record { return s.record }

// Cell returns the last value bound to column name.
func (s *Slot) Cell(name string) Value { return s.cells[name] }

// RowPool owns exactly limit slots registered with the surface once.
type RowPool struct {
	surface  Surface
	pipeline *Pipeline
	columns  []Column
	idPrefix string
	slots    []*Slot
}

// NewRowPool creates size slots on surface. onClick, when non-nil, is wired
// to every slot's click handler.
func NewRowPool(size int, idPrefix string, columns []Column, pipeline *Pipeline, surface Surface, onClick func(ordinal int)) *RowPool {
	p := &RowPool{
		surface:  surface,
		pipeline: pipeline,
		columns:  columns,
		idPrefix: idPrefix,
		slots:    make([]*Slot, size),
	}
	for i := range p.slots {
		p.slots[i] = &Slot{ordinal: i, cells: map[string]Value{}}
		surface.CreateSlot(i)
		surface.HideSlot(i)
		if onClick != nil {
			ordinal := i
			surface.OnRowClick(i, func() { onClick(ordinal) })
		}
	}
	return p
}

func (p *RowPool) Size() int { return len(p.slots) }

// Slot returns the slot at ordinal, nil when out of range.
func (p *RowPool) Slot(ordinal int) *Slot {
	if ordinal < 0 || ordinal >= len(p.slots) {
		return nil
	}
	return p.slots[ordinal]
}

// Columns returns the rendered columns in order.
func (p *RowPool) Columns() []Column { return p.columns }

// RowID formats the stable row id for a record id.
func (p *RowPool) RowID(id int) string {
	return fmt.Sprintf("%s-row-%d", p.idPrefix, id)
}

// Bind renders rec into the slot at ordinal. Every cell is transformed before
// any is written, so a failing rule leaves the slot as it was.
func (p *RowPool) Bind(ordinal int, rec *record.Record) error {
	staged, err := p.stage(ordinal, rec)
	if err != nil {
		return err
	}
	p.apply(staged)
	return nil
}

// stage transforms rec for the slot at ordinal without touching the slot or
// the surface.
func (p *RowPool) stage(ordinal int, rec *record.Record) (*Slot, error) {
	if p.Slot(ordinal) == nil {
		return nil, fmt.Errorf("table: bind ordinal %d out of range [0,%d)", ordinal, len(p.slots))
	}
	staged := &Slot{ordinal: ordinal, record: rec, cells: make(map[string]Value, len(p.columns))}
	for _, col := range p.columns {
		v, err := p.pipeline.Render(col, rec, staged)
		if err != nil {
			return nil, err
		}
		staged.cells[col.Name] = v
	}
	return staged, nil
}

// apply writes a staged slot to the pool and the surface.
func (p *RowPool) apply(staged *Slot) {
	s := p.slots[staged.ordinal]
	if !s.visible {
		p.clear(s)
		p.surface.ShowSlot(s.ordinal)
	}
	s.visible = true
	s.record = staged.record
	s.cells = staged.cells
	s.active = staged.active
	s.rowID = p.RowID(staged.record.ID)
	for _, col := range p.columns {
		p.surface.SetCell(s.ordinal, col.Name, s.cells[col.Name])
	}
	p.surface.SetSlotID(s.ordinal, s.rowID)
	p.surface.SetSlotActive(s.ordinal, s.active)
}

// Hide hides the slot at ordinal and forgets its record. The slot is kept.
func (p *RowPool) Hide(ordinal int) {
	s := p.Slot(ordinal)
	if s == nil || (!s.visible && s.record == nil) {
		return
	}
	s.visible = false
	s.record = nil
	p.surface.HideSlot(ordinal)
}

// clear resets stale attributes of a hidden slot before it is shown again.
func (p *RowPool) clear(s *Slot) {
	for _, col := range p.columns {
		p.surface.SetCell(s.ordinal, col.Name, Value{})
	}
	p.surface.SetSlotID(s.ordinal, "")
	p.surface.SetSlotActive(s.ordinal, false)
	p.surface.SetHighlight(s.ordinal, false)
	s.cells = map[string]Value{}
	s.rowID = ""
	s.active = false
}

// Fill binds recs to the leading slots and hides the rest. Records past the
// pool size are ignored. The whole page is transformed first: when any rule
// fails no slot changes. It returns the ordinals of active slots in order.
func (p *RowPool) Fill(recs []*record.Record) ([]int, error) {
	n := min(len(recs), len(p.slots))
	staged := make([]*Slot, n)
	for i := range staged {
		st, err := p.stage(i, recs[i])
		if err != nil {
			return nil, err
		}
		staged[i] = st
	}

	var active []int
	for i := range p.slots {
		if i >= n {
			p.Hide(i)
			continue
		}
		p.apply(staged[i])
		if staged[i].active {
			active = append(active, i)
		}
	}
	return active, nil
}

// Find returns the visible slot bound to record id.
func (p *RowPool) Find(id int) *Slot {
	for _, s := range p.slots {
		if s.visible && s.record != nil && s.record.ID == id {
			return s
		}
	}
	return nil
}

// Visible counts shown slots.
func (p *RowPool) Visible() int {
	n := 0
	for _, s := range p.slots {
		if s.visible {
			n++
		}
	}
	return n
}
