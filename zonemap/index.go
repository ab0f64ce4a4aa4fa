package zonemap

import "github.com/lever-go/stm/lotable"

// Index tracks, for every zone ID a caller assigns, the min/max of the
// values recorded against it and an approximate hit counter. Zone IDs
// typically map to fixed-size storage blocks; the value type V is
// generalized via an extraction function.
//
// Index is built on lotable.Table rather than a plain map so that updates
// to distinct zones never contend, and a Record/Hits race on the same zone
// is resolved by the table's own transactional read-modify-write.
type Index[V any] struct {
	zones        *lotable.Table[int, *Zone]
	networkWidth int
	valueOf      func(V) int
}

// New constructs an Index. valueOf extracts the integer column value to
// track for min/max purposes from a recorded value.
func New[V any](valueOf func(V) int, opts ...Option) *Index[V] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Index[V]{
		zones:        lotable.WithCapacity[int, *Zone](cfg.shardCount),
		networkWidth: cfg.networkWidth,
		valueOf:      valueOf,
	}
}

// Record folds v's extracted value into zoneID's min/max bounds, creating
// the zone on first use. It does not itself count as a hit; Hits both
// traverses the zone's counting network and reads its current snapshot, so
// every selectivity probe bumps the counter as a side effect.
func (idx *Index[V]) Record(zoneID int, v V) {
	val := idx.valueOf(v)
	idx.zones.ReplaceWith(zoneID, func(old *Zone, present bool) *Zone {
		if !present {
			old = newZone(idx.networkWidth)
		}
		return old.record(val)
	})
}

// Hits traverses zoneID's counting network (recording one more selectivity
// probe) and returns the zone's current snapshot. A zone that has never
// been Recorded returns the zero Zone and does not create an entry.
func (idx *Index[V]) Hits(zoneID int) Zone {
	z, ok := idx.zones.Get(zoneID)
	if !ok {
		return Zone{}
	}
	z.hits.Traverse(zoneID % idx.networkWidth)
	return *z
}

// PruneShards removes every zone for which pred reports true, returning the
// pruned zone IDs. Callers typically use this to drop zones whose bounds
// fall outside a query's predicate range, reclaiming the table slot.
func (idx *Index[V]) PruneShards(pred func(Zone) bool) []int {
	var doomed []int
	idx.zones.Iter(func(id int, z *Zone) bool {
		if pred(*z) {
			doomed = append(doomed, id)
		}
		return true
	})
	for _, id := range doomed {
		idx.zones.Remove(id)
	}
	return doomed
}

// Len returns the number of zones currently tracked.
func (idx *Index[V]) Len() int { return idx.zones.Len() }
