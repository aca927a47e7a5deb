package mps

import (
	"go.uber.org/zap"

	"github.com/bartolsthoorn/gomps/lp"
)

// Option configures a read or write operation.
type Option func(*config)

type config struct {
	logger     *zap.Logger
	duplicates lp.DuplicatePolicy
	metrics    *Metrics
	source     string
}

func defaultConfig() *config {
	return &config{
		logger:     zap.NewNop(),
		duplicates: lp.DuplicateSum,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger routes warnings about tolerated format quirks to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDuplicatePolicy sets how repeated (row, column) coefficients are
// resolved. The default is lp.DuplicateSum.
func WithDuplicatePolicy(policy lp.DuplicatePolicy) Option {
	return func(c *config) {
		c.duplicates = policy
	}
}

// WithStrict rejects repeated (row, column) coefficients.
func WithStrict() Option {
	return WithDuplicatePolicy(lp.DuplicateReject)
}

// WithMetrics records operation counts on m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithSource names the input in the model provenance. ReadFile sets it to
// the path automatically.
func WithSource(name string) Option {
	return func(c *config) {
		c.source = name
	}
}
