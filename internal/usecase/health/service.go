package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ucc-hostels/hostelfinder/internal/version"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
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
	Status  Status
	Checks  map[string]CheckResult
	Version string
}

// defaultCheckTimeout bounds each component check.
const defaultCheckTimeout = 2 * time.Second

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	prefs   PrefsPinger
	timeout time.Duration
}

// New creates a Service. prefs can be nil.
func New(db DBPinger, prefs PrefsPinger) *Service {
	return &Service{db: db, prefs: prefs, timeout: defaultCheckTimeout}
}

// Check pings all components concurrently. A component that does not
// answer within the check timeout counts as failed.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult)
	)
	record := func(name string, err error) {
		res := CheckOK
		if err != nil {
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	ping := func(name string, p interface{ Ping(context.Context) error }) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			// Failures are recorded, not returned, so one failing
			// component does not cancel the others.
			record(name, p.Ping(cctx))
			return nil
		})
	}
	ping("database", s.db)
	if s.prefs != nil {
		ping("prefs", s.prefs)
	}
	_ = g.Wait()

	// Lists are served from the database; without it nothing works.
	status := Healthy
	switch {
	case checks["database"] == CheckError:
		status = Unhealthy
	case checks["prefs"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks, Version: version.Version}
}
