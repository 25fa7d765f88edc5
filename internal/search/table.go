package search

// DefaultTableSize is the bucket count used when none is configured.
const DefaultTableSize = 10007

type entry struct {
	id    uint64
	depth int
	move  Move
}

// Table caches search results by board id. Buckets are chained on collision
// by id mod size. An entry is only ever replaced by a deeper result.
//
// The key is the cell layout alone, so a table must be cleared whenever the
// weight grid changes or an unrelated game starts. Table is not safe for
// concurrent use.
type Table struct {
	buckets [][]entry
	entries int
	hits    int
	misses  int
}

// TableStats is a snapshot of table usage.
type TableStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// NewTable returns a table with size buckets, DefaultTableSize when size < 1.
func NewTable(size int) *Table {
	if size < 1 {
		size = DefaultTableSize
	}
	return &Table{buckets: make([][]entry, size)}
}

func (t *Table) bucket(id uint64) int {
	return int(id % uint64(len(t.buckets)))
}

// Lookup returns the move stored for id when it was searched at least depth
// plies deep, NoMove otherwise.
func (t *Table) Lookup(id uint64, depth int) Move {
	if len(t.buckets) == 0 {
		t.misses++
		return NoMove
	}
	for _, e := range t.buckets[t.bucket(id)] {
		if e.id != id {
			continue
		}
		if e.depth < depth {
			break
		}
		t.hits++
		return e.move
	}
	t.misses++
	return NoMove
}

// Depth returns the stored search depth for id.
func (t *Table) Depth(id uint64) (int, bool) {
	if len(t.buckets) == 0 {
		return 0, false
	}
	for _, e := range t.buckets[t.bucket(id)] {
		if e.id == id {
			return e.depth, true
		}
	}
	return 0, false
}

// Update records m for id at depth. An existing entry is overwritten only
// when its depth is lower.
func (t *Table) Update(id uint64, depth int, m Move) {
	if len(t.buckets) == 0 {
		t.buckets = make([][]entry, DefaultTableSize)
	}
	chain := &t.buckets[t.bucket(id)]
	for i := range *chain {
		e := &(*chain)[i]
		if e.id != id {
			continue
		}
		if e.depth < depth {
			e.depth = depth
			e.move = m
		}
		return
	}
	*chain = append(*chain, entry{id: id, depth: depth, move: m})
	t.entries++
}

// Clear drops every entry and resets the counters.
func (t *Table) Clear() {
	for i := range t.buckets {
		t.buckets[i] = nil
	}
	t.entries, t.hits, t.misses = 0, 0, 0
}

// Len returns the number of stored ids.
func (t *Table) Len() int { return t.entries }

func (t *Table) Stats() TableStats {
	return TableStats{Entries: t.entries, Hits: t.hits, Misses: t.misses}
}
