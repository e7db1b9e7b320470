package ledger

import (
	"fmt"
	"sort"

	"meudinheiro/internal/core"
)

// AddMonth adds the month with the 1-based index to the collection and
// keeps it sorted by id. It returns core.ErrMonthExists without changing
// anything when the month is already present.
func (l *Ledger) AddMonth(index, year int) (core.MonthData, error) {
	m, err := core.NewMonth(index, year)
	if err != nil {
		return core.MonthData{}, err
	}

	l.mu.Lock()
	for _, existing := range l.months {
		if existing.ID == m.ID {
			l.mu.Unlock()
			return core.MonthData{}, fmt.Errorf("%w: %s", core.ErrMonthExists, m.ID)
		}
	}
	next := make([]core.MonthData, 0, len(l.months)+1)
	next = append(next, l.months...)
	next = append(next, m)
	sort.SliceStable(next, func(i, j int) bool { return next[i].ID < next[j].ID })
	l.months = next
	l.mu.Unlock()

	l.notify()
	return m, nil
}

// DeleteMonth removes the month with the given id. It returns
// core.ErrLastMonth when only one month is left, whatever the id. Removing
// an id that is not present is a no-op.
func (l *Ledger) DeleteMonth(id string) error {
	l.mu.Lock()
	if len(l.months) <= 1 {
		l.mu.Unlock()
		return core.ErrLastMonth
	}
	next := make([]core.MonthData, 0, len(l.months))
	for _, m := range l.months {
		if m.ID != id {
			next = append(next, m)
		}
	}
	removed := len(next) != len(l.months)
	if removed {
		l.months = next
	}
	l.mu.Unlock()

	if removed {
		l.notify()
	}
	return nil
}

// AddCategory appends name to the list of t unless it is already there and
// always records icon for name, so it also serves to change an icon.
func (l *Ledger) AddCategory(t core.TransactionType, name, icon string) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidType, t)
	}

	l.mu.Lock()
	if !l.categories.Contains(t, name) {
		cats := l.categories.Clone()
		if cats == nil {
			cats = core.CategoryMap{}
		}
		cats[t] = append(cats[t], name)
		l.categories = cats
	}
	icons := l.icons.Clone()
	icons[name] = icon
	l.icons = icons
	l.mu.Unlock()

	l.notify()
	return nil
}

// DeleteCategory removes name from the list of t only. Icons and the
// transactions that reference the name are left as they are.
func (l *Ledger) DeleteCategory(t core.TransactionType, name string) (bool, error) {
	if !t.IsValid() {
		return false, fmt.Errorf("%w: %q", core.ErrInvalidType, t)
	}

	l.mu.Lock()
	if !l.categories.Contains(t, name) {
		l.mu.Unlock()
		return false, nil
	}
	cats := l.categories.Clone()
	kept := make([]string, 0, len(cats[t]))
	for _, n := range cats[t] {
		if n != name {
			kept = append(kept, n)
		}
	}
	cats[t] = kept
	l.categories = cats
	l.mu.Unlock()

	l.notify()
	return true, nil
}
