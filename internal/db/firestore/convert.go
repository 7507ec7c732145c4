package firestore

import (
	gcfirestore "cloud.google.com/go/firestore"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

// geoPoint matches *latlng.LatLng, which Firestore returns for GeoPoint fields.
type geoPoint interface {
	GetLatitude() float64
	GetLongitude() float64
}

func toDocument(snap *gcfirestore.DocumentSnapshot) db.Document {
	return db.Document{ID: snap.Ref.ID, Fields: fromFirestore(snap.Data())}
}

// fromFirestore normalises Firestore values into plain db values.
func fromFirestore(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return fromFirestore(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fromValue(item)
		}
		return out
	case geoPoint:
		return map[string]any{"latitude": t.GetLatitude(), "longitude": t.GetLongitude()}
	default:
		return v
	}
}

// toFirestore replaces db.Increment values with Firestore transforms.
func toFirestore(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = toValue(v)
	}
	return out
}

func toValue(v any) any {
	switch t := v.(type) {
	case db.Increment:
		return gcfirestore.Increment(int64(t))
	case map[string]any:
		return toFirestore(t)
	default:
		return v
	}
}

func toUpdates(updates []db.Update) []gcfirestore.Update {
	out := make([]gcfirestore.Update, len(updates))
	for i, u := range updates {
		out[i] = gcfirestore.Update{Path: u.Path, Value: toValue(u.Value)}
	}
	return out
}
