package firestore

import (
	"context"

	gcfirestore "cloud.google.com/go/firestore"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

type tx struct {
	client *gcfirestore.Client
	t      *gcfirestore.Transaction
}

// RunTx runs fn in a Firestore transaction. Firestore retries fn on contention.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *gcfirestore.Transaction) error {
		return fn(ctx, &tx{client: s.client, t: t})
	})
	if err != nil {
		return wrap(db.OpTransaction, err)
	}
	return nil
}

func (x *tx) ref(collection, id string) *gcfirestore.DocumentRef {
	return x.client.Collection(collection).Doc(id)
}

func (x *tx) Get(collection, id string) (db.Document, error) {
	snap, err := x.t.Get(x.ref(collection, id))
	if err != nil {
		return db.Document{}, wrap(db.OpGet, err)
	}
	return toDocument(snap), nil
}

func (x *tx) Set(collection, id string, fields map[string]any) error {
	return x.t.Set(x.ref(collection, id), toFirestore(fields))
}

func (x *tx) Merge(collection, id string, fields map[string]any) error {
	return x.t.Set(x.ref(collection, id), toFirestore(fields), gcfirestore.MergeAll)
}

func (x *tx) Update(collection, id string, updates ...db.Update) error {
	return x.t.Update(x.ref(collection, id), toUpdates(updates))
}

func (x *tx) Delete(collection, id string) error {
	return x.t.Delete(x.ref(collection, id))
}
