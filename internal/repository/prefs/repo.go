// Package prefs persists UI preferences as JSON in a key-value store.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	domprefs "github.com/ucc-hostels/hostelfinder/internal/domain/prefs"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
)

// Repo implements preference persistence over a db.KVStore.
type Repo struct {
	kv     db.KVStore
	prefix string
}

// New creates a preference repository. Keys are prefix + "prefs:" + uid.
func New(kv db.KVStore, prefix string) *Repo {
	return &Repo{kv: kv, prefix: prefix}
}

func (r *Repo) key(uid string) string {
	return r.prefix + "prefs:" + uid
}

// Load returns uid's preferences. Missing or corrupt data yields defaults;
// only store failures are returned as errors, together with the defaults.
func (r *Repo) Load(ctx context.Context, uid string) (domprefs.Prefs, error) {
	raw, err := r.kv.Get(ctx, r.key(uid))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domprefs.Defaults(), nil
		}
		return domprefs.Defaults(), fmt.Errorf("load prefs %s: %w", uid, err)
	}

	p := domprefs.Defaults()
	if err := json.Unmarshal(raw, &p); err != nil {
		logger.FromContext(ctx).Warn("discarding corrupt preferences",
			zap.String("uid", uid), zap.Error(err))
		return domprefs.Defaults(), nil
	}
	return p.Sanitize(), nil
}

// Save replaces uid's preferences.
func (r *Repo) Save(ctx context.Context, uid string, p domprefs.Prefs) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := r.kv.Set(ctx, r.key(uid), raw); err != nil {
		return fmt.Errorf("save prefs %s: %w", uid, err)
	}
	return nil
}

// Delete removes uid's preferences.
func (r *Repo) Delete(ctx context.Context, uid string) error {
	if err := r.kv.Del(ctx, r.key(uid)); err != nil {
		return fmt.Errorf("delete prefs %s: %w", uid, err)
	}
	return nil
}
