package health

import "context"

// DBPinger checks cache store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusChecker reports the in-memory corpus state.
type CorpusChecker interface {
	Ensure(ctx context.Context)
	Len() int
}
