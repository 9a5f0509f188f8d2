package services

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"ourfish-bknd/internal/aggregate"
	"ourfish-bknd/internal/charts"
	"ourfish-bknd/internal/dataset"
	"ourfish-bknd/internal/export"
	"ourfish-bknd/internal/geo"
	"ourfish-bknd/internal/session"
	"ourfish-bknd/internal/spatial"
)

// DashboardService serves per-session dashboard state. Sessions are stored
// on their first edit; until then a visitor sees the shared initial session,
// computed once.
type DashboardService struct {
	snap    *dataset.Snapshot
	store   *session.Store
	months  int
	logr    *zap.Logger
	initial func() session.Session
}

func NewDashboardService(snap *dataset.Snapshot, store *session.Store, defaultWindowMonths int, logr *zap.Logger) *DashboardService {
	s := &DashboardService{snap: snap, store: store, months: defaultWindowMonths, logr: logr}
	s.initial = sync.OnceValue(s.newSession)
	return s
}

// DashboardState is everything the UI needs to draw its controls.
type DashboardState struct {
	Selections map[string]geo.SelectionState `json:"selections"`
	Filter     aggregate.FilterState         `json:"filter"`
	Bounds     aggregate.DateRange           `json:"bounds"`
	HasData    bool                          `json:"has_data"`
}

func (s *DashboardService) newSession() session.Session {
	chain, err := geo.NewChain(s.snap.Catalog)
	if err != nil {
		// only reachable with a broken catalog; the empty chain selects nothing
		s.logr.Error("failed to build initial selection", zap.Error(err))
	}
	f := s.snap.DefaultFilter(s.months)
	return session.Session{
		Chain:   chain,
		Applied: chain,
		Filter:  f,
		Result:  aggregate.Run(s.snap.Transactions, s.snap.Locations, f),
	}
}

func (s *DashboardService) session(key string) session.Session {
	if sess, ok := s.store.Get(key); ok {
		return sess
	}
	return s.initial()
}

func (s *DashboardService) state(sess session.Session) DashboardState {
	return DashboardState{
		Selections: sess.Chain.States(),
		Filter:     sess.Filter,
		Bounds:     s.snap.Bounds,
		HasData:    s.snap.HasData,
	}
}

// State returns the session's selections and active filter.
func (s *DashboardService) State(key string) DashboardState {
	return s.state(s.session(key))
}

// Select applies one selection event. On error the session is unchanged.
func (s *DashboardService) Select(key string, ev geo.Event) (DashboardState, error) {
	sess, err := s.store.Update(key, s.initial, func(sess session.Session) (session.Session, error) {
		next, err := sess.Chain.Apply(ev)
		if err != nil {
			return sess, err
		}
		sess.Chain = next
		return sess, nil
	})
	if err != nil {
		return DashboardState{}, err
	}
	return s.state(sess), nil
}

// Apply builds a new filter from the current leaf selection and the given
// dates, recomputes every table and stores the result. On error the session
// keeps its previous filter and result.
func (s *DashboardService) Apply(key string, start, end time.Time) (aggregate.Result, error) {
	sess, err := s.store.Update(key, s.initial, func(sess session.Session) (session.Session, error) {
		f, err := aggregate.NewFilterState(sess.Chain.SelectedAreas(), start, end, s.snap.Bounds, s.snap.KnownArea)
		if err != nil {
			return sess, err
		}

		started := time.Now()
		res := aggregate.Run(s.snap.Transactions, s.snap.Locations, f)
		s.logr.Debug("filter applied",
			zap.Int("areas", len(f.AreaIDs)),
			zap.String("start", f.Start.Format(aggregate.DateLayout)),
			zap.String("end", f.End.Format(aggregate.DateLayout)),
			zap.Int("records", res.Records),
			zap.Duration("took", time.Since(started)),
		)

		sess.Filter = f
		sess.Applied = sess.Chain
		sess.Result = res
		return sess, nil
	})
	if err != nil {
		return aggregate.Result{}, err
	}
	return sess.Result, nil
}

// Result is the last computed result of the session.
func (s *DashboardService) Result(key string) aggregate.Result {
	return s.session(key).Result
}

// Table returns one named table of the last result.
func (s *DashboardService) Table(key, name string) (aggregate.Table, bool) {
	return s.session(key).Result.Sheet(name)
}

// MapData returns the last map layer, centered on a point when focus is set.
func (s *DashboardService) MapData(key string, focus *spatial.Point) (aggregate.MapData, error) {
	m := s.session(key).Result.Map
	if focus != nil {
		v, ok := spatial.FocusView(focus.Lat, focus.Lon)
		if !ok {
			return aggregate.MapData{}, fmt.Errorf("invalid focus coordinate %v,%v", focus.Lat, focus.Lon)
		}
		m.View = v
	}
	return m, nil
}

// Metadata describes the applied filter with names instead of ids.
func (s *DashboardService) Metadata(key string) export.Metadata {
	sess := s.session(key)
	return export.Metadata{
		Countries: sess.Applied.Names(geo.LevelCountry),
		SNUs:      sess.Applied.Names(geo.LevelSNU),
		LGUs:      sess.Applied.Names(geo.LevelLGU),
		MAAs:      sess.Applied.Names(geo.LevelMAA),
		Start:     sess.Filter.Start,
		End:       sess.Filter.End,
	}
}

// Export writes the last result as an xlsx workbook.
func (s *DashboardService) Export(key string, w io.Writer) error {
	return export.Write(w, s.Result(key).Sheets(), s.Metadata(key))
}

// Chart renders one chart of the last result as PNG.
func (s *DashboardService) Chart(key, name string, w io.Writer) error {
	return charts.Render(w, name, s.Result(key))
}

// Nodes lists catalog entries at a level, optionally restricted to children
// of the given parents.
func (s *DashboardService) Nodes(level geo.Level, parents []int64) ([]geo.Node, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", geo.ErrUnknownLevel, int(level))
	}
	if len(parents) == 0 || level == geo.LevelCountry {
		return s.snap.Catalog.Nodes(level), nil
	}
	nodes := make([]geo.Node, 0)
	for _, id := range s.snap.Catalog.Children(level, parents) {
		n, _ := s.snap.Catalog.Node(level, id)
		nodes = append(nodes, n)
	}
	return nodes, nil
}
