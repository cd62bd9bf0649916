package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// CurrentSchemaVersion is written by [Encode].
	CurrentSchemaVersion = 1

	// schemaVersionLegacy is the unversioned browser record ({"state":...,"version":0}).
	schemaVersionLegacy = 0
)

// ErrRecordCorrupt is returned when a persisted record cannot be decoded or
// violates the session invariant.
var ErrRecordCorrupt = errors.New("session record corrupt")

type recordState struct {
	User        *Profile `json:"user"`
	AccessToken *string  `json:"accessToken"`
}

type record struct {
	State   recordState `json:"state"`
	Version int         `json:"version"`
}

// Encode serializes the persisted part of s.
func Encode(s Session) ([]byte, error) {
	if s.User != nil && s.AccessToken == "" {
		return nil, fmt.Errorf("%w: user without access token", ErrRecordCorrupt)
	}
	rec := record{Version: CurrentSchemaVersion}
	if s.User != nil {
		u := *s.User
		rec.State.User = &u
	}
	if s.AccessToken != "" {
		tok := s.AccessToken
		rec.State.AccessToken = &tok
	}
	return json.Marshal(rec)
}

// Decode parses a persisted record. Legacy unversioned records are accepted and
// migrated in memory; the next write upgrades them.
func Decode(data []byte) (Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}

	switch rec.Version {
	case CurrentSchemaVersion, schemaVersionLegacy:
	default:
		return Session{}, fmt.Errorf("unsupported session schema version %d", rec.Version)
	}

	var s Session
	if rec.State.AccessToken != nil {
		s.AccessToken = *rec.State.AccessToken
	}
	if rec.State.User != nil {
		if s.AccessToken == "" {
			return Session{}, fmt.Errorf("%w: user without access token", ErrRecordCorrupt)
		}
		u := *rec.State.User
		s.User = &u
	}
	return s, nil
}
