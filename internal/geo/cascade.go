package geo

import (
	"errors"
	"fmt"
	"strings"
)

// Trigger identifies which control caused a reconciliation.
type Trigger int

const (
	// TriggerUpstream: the selection one level up changed.
	TriggerUpstream Trigger = iota
	// TriggerCheckbox: the "select all" checkbox at this level was toggled.
	TriggerCheckbox
	// TriggerList: the selection list at this level was edited.
	TriggerList
)

var ErrUnknownTrigger = errors.New("unknown selection trigger")

var triggerNames = []string{"upstream", "checkbox", "list"}

func (t Trigger) String() string {
	if t >= TriggerUpstream && t <= TriggerList {
		return triggerNames[t]
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

// ParseTrigger accepts "upstream", "checkbox" or "list".
func ParseTrigger(s string) (Trigger, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range triggerNames {
		if name == key {
			return Trigger(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTrigger, s)
}

// SelectionState is the (all_flag, options, selected) triple of one level.
// Selected is always a subset of Options and follows Options order.
type SelectionState struct {
	AllSelected bool    `json:"all_selected"`
	Options     []int64 `json:"options"`
	Selected    []int64 `json:"selected"`
}

// ReconcileInput carries everything one level needs to reconcile.
//
// For TriggerCheckbox, AllSelected is the new checkbox value. For TriggerList,
// Selected is the new list value. For TriggerUpstream, Selected is the level's
// selection before the upstream change. PreviousOptions is always the option
// set the level showed before this event.
type ReconcileInput struct {
	Trigger          Trigger
	AllSelected      bool
	Selected         []int64
	UpstreamSelected []int64
	PreviousOptions  []int64
}

// Reconcile computes the new state of one level. It is pure: the catalog is
// read-only and the input slices are not modified.
func Reconcile(c *Catalog, level Level, in ReconcileInput) (SelectionState, error) {
	if !level.Valid() {
		return SelectionState{}, fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}

	options := c.Children(level, in.UpstreamSelected)
	var selected []int64

	switch in.Trigger {
	case TriggerUpstream:
		if sameSet(in.Selected, in.PreviousOptions) {
			// nothing was deselected here, so follow upstream
			selected = options
		} else {
			removed := difference(in.PreviousOptions, in.Selected)
			selected = filter(options, func(id int64) bool {
				_, excluded := removed[id]
				return !excluded
			})
		}
	case TriggerCheckbox:
		if in.AllSelected {
			selected = options
		} else {
			selected = []int64{}
		}
	case TriggerList:
		chosen := toSet(in.Selected)
		selected = filter(options, func(id int64) bool {
			_, ok := chosen[id]
			return ok
		})
	default:
		return SelectionState{}, fmt.Errorf("%w: %d", ErrUnknownTrigger, int(in.Trigger))
	}

	return SelectionState{
		AllSelected: len(options) > 0 && len(selected) == len(options),
		Options:     clone(options),
		Selected:    clone(selected),
	}, nil
}

// Event is a raw user edit on one level.
type Event struct {
	Level       Level
	Trigger     Trigger
	AllSelected bool
	Selected    []int64
}

// Chain is the four selection states, coarsest first. A Chain value is never
// modified; Apply returns a new one.
type Chain struct {
	catalog *Catalog
	levels  [NumLevels]SelectionState
}

// NewChain starts with every country selected and every lower level following
// upstream, which selects the whole catalog.
func NewChain(c *Catalog) (Chain, error) {
	ch := Chain{catalog: c}
	return ch.Apply(Event{Level: LevelCountry, Trigger: TriggerCheckbox, AllSelected: true})
}

// Apply reconciles the level named by ev and then every level below it, in
// order, each one using the freshly reconciled selection above it. Levels
// above ev.Level are copied unchanged.
func (ch Chain) Apply(ev Event) (Chain, error) {
	if !ev.Level.Valid() {
		return ch, fmt.Errorf("%w: %d", ErrUnknownLevel, int(ev.Level))
	}
	if ev.Trigger == TriggerUpstream {
		return ch, fmt.Errorf("%w: upstream is not a user event", ErrUnknownTrigger)
	}
	if ev.Trigger == TriggerList {
		if err := ch.catalog.Validate(ev.Level, ev.Selected); err != nil {
			return ch, err
		}
	}

	next := Chain{catalog: ch.catalog, levels: ch.levels}

	for lvl := ev.Level; lvl <= LevelMAA; lvl++ {
		prev := ch.levels[lvl]
		in := ReconcileInput{
			Trigger:         TriggerUpstream,
			Selected:        prev.Selected,
			PreviousOptions: prev.Options,
		}
		if lvl == ev.Level {
			in.Trigger = ev.Trigger
			in.AllSelected = ev.AllSelected
			if ev.Trigger == TriggerList {
				in.Selected = ev.Selected
			}
		}
		if lvl > LevelCountry {
			in.UpstreamSelected = next.levels[lvl-1].Selected
		}

		state, err := Reconcile(ch.catalog, lvl, in)
		if err != nil {
			return ch, err
		}
		next.levels[lvl] = state
	}
	return next, nil
}

// State returns a copy of one level's state.
func (ch Chain) State(level Level) SelectionState {
	if !level.Valid() {
		return SelectionState{}
	}
	s := ch.levels[level]
	return SelectionState{AllSelected: s.AllSelected, Options: clone(s.Options), Selected: clone(s.Selected)}
}

// States returns copies of all four levels keyed by API level name.
func (ch Chain) States() map[string]SelectionState {
	out := make(map[string]SelectionState, NumLevels)
	for lvl := LevelCountry; lvl <= LevelMAA; lvl++ {
		out[lvl.String()] = ch.State(lvl)
	}
	return out
}

// SelectedAreas is the leaf selection consumed by the aggregation filter.
func (ch Chain) SelectedAreas() []int64 {
	return clone(ch.levels[LevelMAA].Selected)
}

// Names resolves the selection at level to display names.
func (ch Chain) Names(level Level) []string {
	if ch.catalog == nil || !level.Valid() {
		return nil
	}
	return ch.catalog.Names(level, ch.levels[level].Selected)
}

func sameSet(a, b []int64) bool {
	sa, sb := toSet(a), toSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for id := range sa {
		if _, ok := sb[id]; !ok {
			return false
		}
	}
	return true
}

func difference(a, b []int64) map[int64]struct{} {
	sb := toSet(b)
	out := map[int64]struct{}{}
	for _, id := range a {
		if _, ok := sb[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func filter(ids []int64, keep func(int64) bool) []int64 {
	out := []int64{}
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

func clone(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}
