// Package health aggregates component readiness for the health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	corpus    CorpusChecker
	db        DBPinger
	embedding EmbeddingChecker
}

// New creates a Service. db and embedding can be nil (cache disabled, no
// provider configured); those checks are then omitted from the report.
func New(corpus CorpusChecker, db DBPinger, embedding EmbeddingChecker) *Service {
	return &Service{corpus: corpus, db: db, embedding: embedding}
}

// Check runs health checks against all components. An empty corpus is a
// degraded state, not a hard failure: the service still answers, with empty
// result sets.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.corpus != nil {
		s.corpus.Ensure(ctx)
		if s.corpus.Len() > 0 {
			checks["corpus"] = CheckOK
		} else {
			checks["corpus"] = CheckError
		}
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
