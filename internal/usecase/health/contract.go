package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// PrefsPinger checks the preference store. The in-memory store has none.
type PrefsPinger interface {
	Ping(ctx context.Context) error
}
