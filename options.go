package statemap

type options struct {
	initialCapacity uint64
	policy          GrowthPolicy
	hasher          Hasher
	logger          *Logger
	metrics         MetricsCollector
	trackStats      bool
}

// Option configures map construction. The defaults are chosen for
// large-scale exploration runs: 1024 initial buckets, load factor 0.75,
// xxhash hashing, no logging, no metrics, no probe counters.
type Option func(*options)

// WithInitialCapacity starts the map at the smallest growth-table entry
// holding at least capacity buckets. Sizing for the expected state count
// up front avoids early rehash churn.
func WithInitialCapacity(capacity uint64) Option {
	return func(o *options) {
		o.initialCapacity = capacity
	}
}

// WithLoadFactor overrides the load factor of the growth policy. Values
// must lie in (0, 1]; New rejects anything else.
func WithLoadFactor(loadFactor float64) Option {
	return func(o *options) {
		o.policy.LoadFactor = loadFactor
	}
}

// WithGrowthTable overrides the table of admissible bucket counts. Entries
// must be strictly ascending powers of two; New rejects anything else. The
// last entry is a hard capacity ceiling — exhausting it panics.
func WithGrowthTable(sizes []uint64) Option {
	return func(o *options) {
		o.policy.Sizes = sizes
	}
}

// WithGrowthPolicy replaces the whole growth policy (sizes and load
// factor) at once.
func WithGrowthPolicy(policy GrowthPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithHasher replaces the default xxhash hasher. The hasher must be
// referentially transparent; a map restored from a snapshot must be given
// the same hasher it was built with.
func WithHasher(hasher Hasher) Option {
	return func(o *options) {
		if hasher == nil {
			hasher = XXHasher{}
		}
		o.hasher = hasher
	}
}

// WithSeed keeps the default xxhash hasher but perturbs it with a seed.
// Shards built on top of this map should use distinct seeds so intra-shard
// probe sequences stay unrelated to the shard selector.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.hasher = XXHasher{Seed: seed}
	}
}

// WithLogger configures structured logging for resize and snapshot
// events. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithStats enables the per-instance probe counters reported by Stats.
// Collection costs a few branches per operation and is off by default.
func WithStats() Option {
	return func(o *options) {
		o.trackStats = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		initialCapacity: 1024,
		policy:          DefaultGrowthPolicy(),
		hasher:          XXHasher{},
		logger:          NoopLogger(),
		metrics:         NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
