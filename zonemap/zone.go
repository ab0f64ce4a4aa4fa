// Package zonemap implements ZoneMap, a column statistic over a table:
// per-zone min/max bounds plus a countnet.Network-backed approximate hit
// counter. Callers assign zone IDs themselves (typically one per shard or
// per storage block) and record values as they are written.
package zonemap

import "github.com/lever-go/stm/countnet"

// Zone holds the summary for one zone: the min/max of every value recorded
// against it, and an approximate count of how often it has been consulted
// for a selectivity estimate.
type Zone struct {
	Min, Max int
	seen     bool
	hits     *countnet.Network
}

// Hits returns the zone's approximate traversal count.
func (z Zone) Hits() int {
	if z.hits == nil {
		return 0
	}
	return z.hits.Get()
}

func newZone(width int) *Zone {
	return &Zone{hits: countnet.New(width)}
}

func (z *Zone) record(val int) *Zone {
	nz := &Zone{Min: z.Min, Max: z.Max, seen: z.seen, hits: z.hits}
	if !nz.seen || val < nz.Min {
		nz.Min = val
	}
	if !nz.seen || val > nz.Max {
		nz.Max = val
	}
	nz.seen = true
	return nz
}
