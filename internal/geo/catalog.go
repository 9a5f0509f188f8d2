package geo

import (
	"errors"
	"fmt"
	"strings"

	"ourfish-bknd/internal/models"
)

// Level is a tier of the geographic hierarchy, ordered from coarsest to finest.
type Level int

const (
	LevelCountry Level = iota
	LevelSNU
	LevelLGU
	LevelMAA
)

// NumLevels is the depth of the hierarchy.
const NumLevels = 4

var (
	ErrUnknownLevel = errors.New("unknown geographic level")
	ErrUnknownNode  = errors.New("unknown geographic node")
)

var levelNames = [NumLevels]string{"country", "snu", "lgu", "maa"}

func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	return l >= LevelCountry && l <= LevelMAA
}

// ParseLevel accepts the short API names ("country", "snu", "lgu", "maa").
func ParseLevel(s string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if name == key {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Node is one entry of the catalog. ParentID is 0 for countries.
type Node struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id,omitempty"`
	Level    Level  `json:"-"`
}

type levelIndex struct {
	nodes []Node
	byID  map[int64]int
}

// Catalog holds the four reference tables. It is built once and never
// modified, so it is safe to share between sessions.
type Catalog struct {
	levels  [NumLevels]levelIndex
	dropped int
}

// NewCatalog indexes the reference tables. Rows keep the order they are given
// in. Duplicate ids keep their first occurrence, and rows whose parent does not
// exist one level up are dropped.
func NewCatalog(
	countries []models.Country,
	snus []models.SubnationalUnit,
	lgus []models.LocalGovernmentUnit,
	maas []models.ManagedAccessArea,
) *Catalog {
	c := &Catalog{}
	for i := range c.levels {
		c.levels[i] = levelIndex{byID: map[int64]int{}}
	}

	for _, row := range countries {
		c.add(Node{ID: row.ID, Name: row.Name, Level: LevelCountry})
	}
	for _, row := range snus {
		c.add(Node{ID: row.ID, Name: row.Name, ParentID: row.CountryID, Level: LevelSNU})
	}
	for _, row := range lgus {
		c.add(Node{ID: row.ID, Name: row.Name, ParentID: row.SNUID, Level: LevelLGU})
	}
	for _, row := range maas {
		c.add(Node{ID: row.ID, Name: row.Name, ParentID: row.LGUID, Level: LevelMAA})
	}
	return c
}

func (c *Catalog) add(n Node) {
	idx := &c.levels[n.Level]
	if _, dup := idx.byID[n.ID]; dup {
		c.dropped++
		return
	}
	if n.Level != LevelCountry {
		if _, ok := c.levels[n.Level-1].byID[n.ParentID]; !ok {
			c.dropped++
			return
		}
	}
	idx.byID[n.ID] = len(idx.nodes)
	idx.nodes = append(idx.nodes, n)
}

// Dropped is the number of rows discarded while building the catalog.
func (c *Catalog) Dropped() int { return c.dropped }

// Nodes returns every node at a level in catalog order.
func (c *Catalog) Nodes(level Level) []Node {
	if !level.Valid() {
		return nil
	}
	out := make([]Node, len(c.levels[level].nodes))
	copy(out, c.levels[level].nodes)
	return out
}

// Node looks up a single node.
func (c *Catalog) Node(level Level, id int64) (Node, bool) {
	if !level.Valid() {
		return Node{}, false
	}
	i, ok := c.levels[level].byID[id]
	if !ok {
		return Node{}, false
	}
	return c.levels[level].nodes[i], true
}

// Has reports whether id exists at level.
func (c *Catalog) Has(level Level, id int64) bool {
	_, ok := c.Node(level, id)
	return ok
}

// IDs lists every id at a level in catalog order.
func (c *Catalog) IDs(level Level) []int64 {
	if !level.Valid() {
		return nil
	}
	nodes := c.levels[level].nodes
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

// Children returns the ids at level whose parent is one of parents. The
// result follows catalog order (not the order of parents) and has no
// duplicates. Unknown parents contribute nothing. For LevelCountry the
// parents are ignored and every country is returned.
func (c *Catalog) Children(level Level, parents []int64) []int64 {
	if !level.Valid() {
		return nil
	}
	if level == LevelCountry {
		return c.IDs(LevelCountry)
	}

	want := make(map[int64]struct{}, len(parents))
	for _, p := range parents {
		want[p] = struct{}{}
	}
	out := []int64{}
	for _, n := range c.levels[level].nodes {
		if _, ok := want[n.ParentID]; ok {
			out = append(out, n.ID)
		}
	}
	return out
}

// Names resolves ids to names in the order given, skipping unknown ids.
func (c *Catalog) Names(level Level, ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := c.Node(level, id); ok {
			out = append(out, n.Name)
		}
	}
	return out
}

// Validate returns ErrUnknownNode for the first id that does not exist at level.
func (c *Catalog) Validate(level Level, ids []int64) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}
	for _, id := range ids {
		if !c.Has(level, id) {
			return fmt.Errorf("%w: %s %d", ErrUnknownNode, level, id)
		}
	}
	return nil
}
