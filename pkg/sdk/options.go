package knowbase

import "go.uber.org/zap"

type clientConfig struct {
	driver    string
	addrs     []string
	password  string
	keyPrefix string
	vectorDim int

	embedder  Embedder
	generator Generator
	logger    *zap.Logger

	similarityThreshold float64
	maxDocuments        int
	maxContextChars     int
	minConfidence       float64
	trailerConfidence   float64

	rateWindowMs    int
	rateMaxRequests int

	adminIDs []string
}

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(cfg *clientConfig) { f(cfg) }

// WithRedis connects to a Redis Stack backend.
func WithRedis(addrs []string, password string) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.driver = "redis"
		cfg.addrs = addrs
		cfg.password = password
	})
}

// WithMemory uses the in-memory backend (tests, local runs).
func WithMemory() Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.driver = "memory"
	})
}

// WithKeyPrefix overrides the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.keyPrefix = prefix })
}

// WithEmbedder sets the embedding provider. Required for all operations.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.embedder = e })
}

// WithGenerator sets the answer generation provider. Required for Query.
func WithGenerator(g Generator) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.generator = g })
}

// WithVectorDim sets the embedding dimension for index creation.
func WithVectorDim(dim int) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.vectorDim = dim })
}

// WithLogger sets the logger (zap.NewNop by default).
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.logger = logger })
}

// WithRetrieval overrides retrieval parameters. Zero values keep defaults.
func WithRetrieval(similarityThreshold float64, maxDocuments, maxContextChars int) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.similarityThreshold = similarityThreshold
		cfg.maxDocuments = maxDocuments
		cfg.maxContextChars = maxContextChars
	})
}

// WithConfidenceGates overrides the answer and trailer confidence gates.
func WithConfidenceGates(minConfidence, trailerConfidence float64) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.minConfidence = minConfidence
		cfg.trailerConfidence = trailerConfidence
	})
}

// WithRateLimit overrides the sliding window admission settings.
func WithRateLimit(windowMs, maxRequests int) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.rateWindowMs = windowMs
		cfg.rateMaxRequests = maxRequests
	})
}

// WithAdmins sets the identities allowed to upload documents.
func WithAdmins(ids []string) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.adminIDs = ids })
}
