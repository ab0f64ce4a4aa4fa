package zonemap

const defaultNetworkWidth = 4

type config struct {
	networkWidth int
	shardCount   int
}

func defaultConfig() config {
	return config{networkWidth: defaultNetworkWidth, shardCount: 16}
}

// Option configures an Index at construction time.
type Option func(*config)

// WithNetworkWidth overrides the width of the per-zone counting network
// (default 4). Must be a power of two.
func WithNetworkWidth(width int) Option {
	return func(c *config) { c.networkWidth = width }
}

// WithShardCount overrides the number of shards backing the zone table
// (default 16). This only affects contention between updates to distinct
// zones, not the zone ID space itself.
func WithShardCount(n int) Option {
	return func(c *config) { c.shardCount = n }
}
