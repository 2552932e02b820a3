package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedToken indicates a page token that is not a valid encoding of a
// cursor map. Callers must treat this exactly like an absent token and
// restart every source from its default position; it must never fail the
// surrounding request.
var ErrMalformedToken = errors.New("malformed page token")

// State describes where the aggregator stands with one source.
type State string

const (
	// StateNotStarted marks a source that has not been fetched yet and
	// starts from its default position.
	StateNotStarted State = "not_started"

	// StateResumable marks a source with more data; Value carries the
	// opaque upstream cursor the current chunk was fetched from and Skip
	// the number of entities of that chunk already delivered.
	StateResumable State = "resumable"

	// StateExhausted marks a source that has no further data for this
	// pagination session.
	StateExhausted State = "exhausted"
)

// Cursor is the per-source resume position. The aggregator never interprets
// Value; it is an opaque blob owned by the source. Skip is aggregator-owned
// and counts entities of the chunk at Value that earlier pages delivered,
// so a resumed request refetches the chunk and drops them.
type Cursor struct {
	State State  `json:"state"`
	Value string `json:"value,omitempty"`
	Skip  int    `json:"skip,omitempty"`
}

// NotStarted returns the default-position cursor.
func NotStarted() Cursor { return Cursor{State: StateNotStarted} }

// Resumable returns a cursor pointing at the chunk fetched from value, with
// skip entities of it already delivered.
func Resumable(value string, skip int) Cursor {
	return Cursor{State: StateResumable, Value: value, Skip: skip}
}

// Exhausted returns the no-further-data cursor.
func Exhausted() Cursor { return Cursor{State: StateExhausted} }

// Live reports whether the source can still contribute data.
func (c Cursor) Live() bool {
	return c.State == StateNotStarted || c.State == StateResumable
}

// payload is the wire form of a token. The version field guards against
// tokens minted by incompatible releases; those decode as malformed and the
// request restarts from default, per the codec contract.
type payload struct {
	Version int               `json:"v"`
	Sources map[string]Cursor `json:"sources"`
}

const payloadVersion = 1

// Encode serializes a cursor map into an opaque transport-safe string.
// When no source is live the pagination session is over and Encode returns
// the empty string, the no-more-data marker; callers must surface that as
// an absent token, never as a token that decodes to an empty map.
func Encode(cursors map[string]Cursor) (string, error) {
	live := false
	for id, c := range cursors {
		switch c.State {
		case StateNotStarted, StateResumable, StateExhausted:
		default:
			return "", fmt.Errorf("source %q: invalid cursor state %q", id, c.State)
		}
		if c.Live() {
			live = true
		}
	}
	if !live {
		return "", nil
	}

	data, err := json.Marshal(payload{Version: payloadVersion, Sources: cursors})
	if err != nil {
		return "", fmt.Errorf("marshal page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a page token back into its cursor map. An empty token
// yields an empty map (all sources start from default). Any structural
// problem yields ErrMalformedToken.
//
// A source absent from a decoded non-empty map is exhausted for this
// session: sources that are merely pending appear explicitly as
// not_started, so absence is never ambiguous.
func Decode(tok string) (map[string]Cursor, error) {
	if tok == "" {
		return map[string]Cursor{}, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if p.Version != payloadVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedToken, p.Version)
	}
	if p.Sources == nil {
		return nil, fmt.Errorf("%w: missing source map", ErrMalformedToken)
	}

	for id, c := range p.Sources {
		switch c.State {
		case StateNotStarted, StateResumable, StateExhausted:
		default:
			return nil, fmt.Errorf("%w: source %q has invalid state %q", ErrMalformedToken, id, c.State)
		}
		if c.Skip < 0 {
			return nil, fmt.Errorf("%w: source %q has negative skip", ErrMalformedToken, id)
		}
	}

	return p.Sources, nil
}
