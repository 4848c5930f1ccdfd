package pages

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"gitlab.com/tinyland/lab/wagerboard/pkg/components"
	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
	"gitlab.com/tinyland/lab/wagerboard/pkg/source"
	"gitlab.com/tinyland/lab/wagerboard/pkg/table"
)

// uncounted hides the mock's Counter implementation.
type uncounted struct{ source.Source }

func rowText(v *View, width int) []string {
	out := strings.Split(components.StripANSI(v.Table.Render(width)), "\n")
	return out[2:]
}

func TestSessionsView(t *testing.T) {
	ctx := context.Background()
	src := source.NewMockSource(source.WithSessionCount(25), source.WithSeed(4))
	var opened *record.Record
	v, err := NewSessionsView(ctx, Config{Source: src, Limit: 10}, func(r *record.Record) { opened = r })
	if err != nil {
		t.Fatal(err)
	}
	if v.Total() != 25 || v.Limit() != 10 {
		t.Errorf("total/limit = %d/%d", v.Total(), v.Limit())
	}
	if err := v.Load(ctx); err != nil {
		t.Fatal(err)
	}
	rows := rowText(v, 120)
	if len(rows) != 10 {
		t.Fatalf("rows = %d", len(rows))
	}
	if !strings.Contains(rows[0], "25") || !strings.Contains(rows[0], "In Progress") {
		t.Errorf("active row = %q", rows[0])
	}
	if !strings.Contains(rows[0], "alice, bob") {
		t.Errorf("users not resolved: %q", rows[0])
	}

	s, _ := src.Session(24)
	cell := v.Table.Cell(1, "sessions").String()
	if want := strconv.Itoa(len(s.Value("gameSessions").([]any))); cell != want {
		t.Errorf("sessions cell = %q, want %s", cell, want)
	}
	if d := v.Table.Cell(1, "duration").String(); !strings.HasSuffix(d, " mins") {
		t.Errorf("duration = %q", d)
	}

	if !v.Table.Click(1) || opened == nil || opened.ID != 24 {
		t.Fatalf("click opened %v", opened)
	}
	title, body := v.Detail()
	if title != "session 24" || !strings.Contains(body, "wins") || !strings.Contains(body, "owes") {
		t.Errorf("detail = %q / %q", title, body)
	}

	moved, err := v.Engine.Navigate(ctx, table.Next)
	if err != nil || !moved {
		t.Fatalf("Navigate = %v, %v", moved, err)
	}
	if got := v.Query.Get(table.ParamOffset); got != "9" {
		t.Errorf("offset = %q, want 9", got)
	}
}

func TestSessionsViewOpenBound(t *testing.T) {
	ctx := context.Background()
	src := uncounted{source.NewMockSource(source.WithSessionCount(14))}
	v, err := NewSessionsView(ctx, Config{Source: src, Limit: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Total() != 0 {
		t.Fatalf("total = %d, want open", v.Total())
	}
	if err := v.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if !v.Table.NextEnabled() {
		t.Fatal("a full page should leave next enabled")
	}
	if moved, err := v.Engine.Navigate(ctx, table.Next); err != nil || !moved {
		t.Fatalf("Navigate = %v, %v", moved, err)
	}
	// Page 2 holds the active session plus the 4 oldest: a short page.
	if n := len(rowText(v, 100)); n != 5 {
		t.Errorf("page 2 rows = %d", n)
	}
	if v.Table.NextEnabled() {
		t.Error("a short page is the last one")
	}
	if moved, _ := v.Engine.Navigate(ctx, table.Next); moved {
		t.Error("navigation past a short page")
	}
}

func TestSessionsViewUserLookupFailure(t *testing.T) {
	ctx := context.Background()
	src := source.NewMockSource(source.WithSessionCount(3))
	src.SetError(errors.New("down"))
	v, err := NewSessionsView(ctx, Config{Source: src}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Users()) != 0 {
		t.Errorf("users = %v", v.Users())
	}
	src.SetError(nil)
	if err := v.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := v.Table.Cell(0, "users").String(); !strings.HasPrefix(got, "#1, #2") {
		t.Errorf("users cell = %q", got)
	}
}

func TestRoundsView(t *testing.T) {
	ctx := context.Background()
	src := source.NewMockSource(source.WithSessionCount(3), source.WithMaxRounds(6), source.WithSeed(2))
	users, _ := src.Users(ctx)
	v, err := NewRoundsView(ctx, Config{Source: src, Limit: 5, IDPrefix: "wb"}, 3, users)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if v.Table.RowID(0) == "" || !strings.HasPrefix(v.Table.RowID(0), "wb-rounds-3-row-") {
		t.Errorf("row id = %q", v.Table.RowID(0))
	}
	games := map[string]bool{"Poker": true, "Blackjack": true, "Catan": true, "Rummy": true}
	if g := v.Table.Cell(0, "game").String(); !games[g] {
		t.Errorf("game cell = %q", g)
	}
	if r := v.Table.Cell(0, "rounds").String(); r == "" || r == "0" {
		t.Errorf("rounds cell = %q", r)
	}
	if v.Engine.Active() == nil {
		t.Fatal("newest round of the active session should be active")
	}
	title, body := v.Detail()
	if !strings.HasPrefix(title, "game session ") || body != "no result yet" {
		t.Errorf("detail of an unfinished round = %q / %q", title, body)
	}
}

func TestRoundsViewUnknownSession(t *testing.T) {
	ctx := context.Background()
	src := source.NewMockSource(source.WithSessionCount(2))
	v, err := NewRoundsView(ctx, Config{Source: src}, 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = v.Load(ctx)
	var fe *table.FetchError
	if !errors.As(err, &fe) || !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("Load = %v", err)
	}
	if fe.Message != "resource not found" {
		t.Errorf("message = %q", fe.Message)
	}
}

func TestViewValidation(t *testing.T) {
	src := source.NewMockSource(source.WithSessionCount(1))
	if _, err := NewSessionsView(context.Background(), Config{Source: src, Limit: -2}, nil); !errors.Is(err, table.ErrBadLimit) {
		t.Errorf("err = %v", err)
	}
}

func TestViewResize(t *testing.T) {
	ctx := context.Background()
	src := source.NewMockSource(source.WithSessionCount(25))
	var opened []int
	v, err := NewSessionsView(ctx, Config{Source: src, Limit: 10, Offset: 9}, func(r *record.Record) { opened = append(opened, r.ID) })
	if err != nil {
		t.Fatal(err)
	}
	r, err := v.Resize(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if r.Limit() != 5 || r.Query.Get(table.ParamOffset) != "0" || r.Total() != 25 {
		t.Errorf("resized limit=%d offset=%s total=%d", r.Limit(), r.Query.Get(table.ParamOffset), r.Total())
	}
	if err := r.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(rowText(r, 100)); n != 5 {
		t.Errorf("rows = %d", n)
	}
	r.Table.Click(0)
	if len(opened) != 1 || opened[0] != 25 {
		t.Errorf("resized view lost its open handler: %v", opened)
	}

	child := r.Child()
	if child.Limit != 5 || child.Offset != 0 || child.Seed != nil || child.Source != src {
		t.Errorf("child config = %+v", child)
	}
}
