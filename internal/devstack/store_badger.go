// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package devstack

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//   - sessions:  "sess:<user id>" (JSON)
//   - token idx: "tok:<access token>"  -> user id
//                "ref:<refresh token>" -> user id
//   - profiles:  "prof:<user id>" (JSON)
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) PutSession(ctx context.Context, rec SessionRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := []byte("sess:" + rec.UserID.String())
	userID := []byte(rec.UserID.String())

	return s.db.Update(func(txn *badger.Txn) error {
		// Rotation: drop the index entries of the replaced tokens.
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var old SessionRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			}); err == nil {
				if old.AccessToken != rec.AccessToken {
					_ = txn.Delete([]byte("tok:" + old.AccessToken))
				}
				if old.RefreshToken != rec.RefreshToken {
					_ = txn.Delete([]byte("ref:" + old.RefreshToken))
				}
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// first write for this user
		default:
			return err
		}

		if err := txn.Set(key, buf); err != nil {
			return err
		}
		if err := txn.Set([]byte("tok:"+rec.AccessToken), userID); err != nil {
			return err
		}
		return txn.Set([]byte("ref:"+rec.RefreshToken), userID)
	})
}

func (s *BadgerStore) SessionByAccessToken(ctx context.Context, token string) (SessionRecord, error) {
	return s.sessionByIndex("tok:" + token)
}

func (s *BadgerStore) SessionByRefreshToken(ctx context.Context, token string) (SessionRecord, error) {
	return s.sessionByIndex("ref:" + token)
}

func (s *BadgerStore) sessionByIndex(indexKey string) (SessionRecord, error) {
	var rec SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(indexKey))
		if err != nil {
			return err
		}
		var userID string
		if err := item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte("sess:" + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return SessionRecord{}, ErrNotFound
		}
		return SessionRecord{}, err
	}
	return rec, nil
}

func (s *BadgerStore) DeleteSession(ctx context.Context, userID string) error {
	key := []byte("sess:" + userID)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var rec SessionRecord
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		_ = txn.Delete([]byte("tok:" + rec.AccessToken))
		_ = txn.Delete([]byte("ref:" + rec.RefreshToken))
		return txn.Delete(key)
	})
}

func (s *BadgerStore) PutProfile(ctx context.Context, rec ProfileRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("prof:"+rec.UserID.String()), buf)
	})
}

func (s *BadgerStore) ProfileByUser(ctx context.Context, userID string) (ProfileRecord, error) {
	var rec ProfileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("prof:" + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ProfileRecord{}, ErrNotFound
		}
		return ProfileRecord{}, err
	}
	return rec, nil
}

var _ Store = (*BadgerStore)(nil)
