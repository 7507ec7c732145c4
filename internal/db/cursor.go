package db

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is a page boundary: the ordering field's value on the last returned
// document and that document's ID. Positioning uses the values alone, so the
// document may since have changed or been deleted.
type Cursor struct {
	Field string
	Value any
	ID    string
}

func (c Cursor) String() string {
	return fmt.Sprintf("(%v, %s)", c.Value, c.ID)
}

// Value kinds in an encoded cursor.
const (
	kindInt    = "i"
	kindFloat  = "f"
	kindString = "s"
	kindBool   = "b"
	kindTime   = "t"
)

type cursorToken struct {
	Field string          `json:"f"`
	Kind  string          `json:"k,omitempty"`
	Value json.RawMessage `json:"v,omitempty"`
	ID    string          `json:"id"`
}

// Encode renders c as an opaque URL-safe token. Only scalar values encode.
func (c Cursor) Encode() (string, error) {
	tok := cursorToken{Field: c.Field, ID: c.ID}
	var v any
	switch x := c.Value.(type) {
	case nil:
	case int:
		tok.Kind, v = kindInt, int64(x)
	case int32:
		tok.Kind, v = kindInt, int64(x)
	case int64:
		tok.Kind, v = kindInt, x
	case float32:
		tok.Kind, v = kindFloat, float64(x)
	case float64:
		tok.Kind, v = kindFloat, x
	case string:
		tok.Kind, v = kindString, x
	case bool:
		tok.Kind, v = kindBool, x
	case time.Time:
		tok.Kind, v = kindTime, x.UTC().Format(time.RFC3339Nano)
	default:
		return "", fmt.Errorf("%w: cursor value of type %T", ErrInvalidQuery, c.Value)
	}
	if tok.Kind != "" {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode cursor: %w", err)
		}
		tok.Value = raw
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor parses a token made by Encode.
func DecodeCursor(token string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidQuery)
	}
	var tok cursorToken
	if err := json.Unmarshal(b, &tok); err != nil || tok.ID == "" {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidQuery)
	}
	c := Cursor{Field: tok.Field, ID: tok.ID}
	switch tok.Kind {
	case "":
		return c, nil
	case kindInt:
		var n int64
		err = json.Unmarshal(tok.Value, &n)
		c.Value = n
	case kindFloat:
		var f float64
		err = json.Unmarshal(tok.Value, &f)
		c.Value = f
	case kindString:
		var s string
		err = json.Unmarshal(tok.Value, &s)
		c.Value = s
	case kindBool:
		var v bool
		err = json.Unmarshal(tok.Value, &v)
		c.Value = v
	case kindTime:
		var s string
		if err = json.Unmarshal(tok.Value, &s); err == nil {
			c.Value, err = time.Parse(time.RFC3339Nano, s)
		}
	default:
		return Cursor{}, fmt.Errorf("%w: unknown cursor kind %q", ErrInvalidQuery, tok.Kind)
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor value", ErrInvalidQuery)
	}
	return c, nil
}

// NextCursor returns the token continuing after the last of docs under o, or
// "" when docs is empty.
func NextCursor(o Ordering, docs []Document) (string, error) {
	if len(docs) == 0 {
		return "", nil
	}
	last := docs[len(docs)-1]
	c := Cursor{Field: o.Field, ID: last.ID}
	if o.Field != "" {
		c.Value, _ = Lookup(last.Fields, o.Field)
	}
	return c.Encode()
}
