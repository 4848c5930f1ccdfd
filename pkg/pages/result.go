package pages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// ResultMap is who owes whom: ResultMap[debtor][creditor] = amount.
type ResultMap map[int]map[int]int

// Share is one side of a debt.
type Share struct {
	Player int
	Amount int
}

// ParseResult reads a decoded "result" field. Keys are player ids as strings
// (JSON object keys) or integers; zero amounts are kept.
func ParseResult(raw any) (ResultMap, error) {
	out := ResultMap{}
	if raw == nil {
		return out, nil
	}
	outer, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("pages: result is %T, want an object", raw)
	}
	for debtorKey, inner := range outer {
		debtor, err := strconv.Atoi(debtorKey)
		if err != nil {
			return nil, fmt.Errorf("pages: result key %q: %w", debtorKey, err)
		}
		owes, ok := inner.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("pages: result[%d] is %T, want an object", debtor, inner)
		}
		row := make(map[int]int, len(owes))
		for creditorKey, v := range owes {
			creditor, err := strconv.Atoi(creditorKey)
			if err != nil {
				return nil, fmt.Errorf("pages: result[%d] key %q: %w", debtor, creditorKey, err)
			}
			amount, ok := record.Int(v)
			if !ok {
				return nil, fmt.Errorf("pages: result[%d][%d] is not integral", debtor, creditor)
			}
			row[creditor] = amount
		}
		out[debtor] = row
	}
	return out, nil
}

// Players returns every id that appears as debtor or creditor, ascending.
func (r ResultMap) Players() []int {
	seen := map[int]bool{}
	for debtor, owes := range r {
		seen[debtor] = true
		for creditor := range owes {
			seen[creditor] = true
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Wins returns what player is owed in total and by whom.
func (r ResultMap) Wins(player int) (int, []Share) {
	total := 0
	var from []Share
	for debtor, owes := range r {
		if amount := owes[player]; amount > 0 && debtor != player {
			total += amount
			from = append(from, Share{Player: debtor, Amount: amount})
		}
	}
	sortShares(from)
	return total, from
}

// Owes returns what player owes in total and to whom.
func (r ResultMap) Owes(player int) (int, []Share) {
	total := 0
	var to []Share
	for creditor, amount := range r[player] {
		if amount > 0 && creditor != player {
			total += amount
			to = append(to, Share{Player: creditor, Amount: amount})
		}
	}
	sortShares(to)
	return total, to
}

func sortShares(s []Share) {
	sort.Slice(s, func(i, j int) bool { return s[i].Player < s[j].Player })
}

// Summary renders per player "<name> wins <total|nothing>" with "N from X"
// lines, then "<name> owes <total|nothing>" with "N to X" lines.
func (r ResultMap) Summary(names map[int]string) string {
	var b strings.Builder
	for i, p := range r.Players() {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := playerName(names, p)
		total, from := r.Wins(p)
		fmt.Fprintf(&b, "%s wins %s\n", name, amountOrNothing(total))
		for _, s := range from {
			fmt.Fprintf(&b, "  %d from %s\n", s.Amount, playerName(names, s.Player))
		}
		total, to := r.Owes(p)
		fmt.Fprintf(&b, "%s owes %s", name, amountOrNothing(total))
		for _, s := range to {
			fmt.Fprintf(&b, "\n  %d to %s", s.Amount, playerName(names, s.Player))
		}
	}
	return b.String()
}

func amountOrNothing(n int) string {
	if n == 0 {
		return "nothing"
	}
	return strconv.Itoa(n)
}

func playerName(names map[int]string, id int) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return "#" + strconv.Itoa(id)
}
