package boltstore

import (
	"bytes"
	"encoding/gob"
)

func init() {
	gob.Register(Account{})
	gob.Register(MatchRecord{})
}

// encode serializes a record to bytes using gob.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeAccount deserializes bytes back into an Account.
func decodeAccount(data []byte) (*Account, error) {
	var a Account
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// decodeMatch deserializes bytes back into a MatchRecord.
func decodeMatch(data []byte) (*MatchRecord, error) {
	var m MatchRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
