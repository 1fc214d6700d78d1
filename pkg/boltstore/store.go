package boltstore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	bbolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountExists   = errors.New("boltstore: account already exists")
	ErrAccountNotFound = errors.New("boltstore: account not found")
	ErrBadPassword     = errors.New("boltstore: wrong password")
)

// Account is a persistent player login.
type Account struct {
	Name         string
	PasswordHash []byte
	Team         int
	Champion     string
	Admin        bool
	Created      time.Time
	LastLogin    time.Time
}

// MatchRecord summarizes one finished simulation run.
type MatchRecord struct {
	ID      uint64
	Name    string
	Started time.Time
	Ended   time.Time
	Ticks   uint64
	Kills   int
	Pauses  int
}

// Store wraps a bbolt database holding accounts and match history.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketAccounts, bucketMatches} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if meta.Get(keyVersion) == nil {
			return meta.Put(keyVersion, intToKey(schemaVersion))
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// Version returns the stored schema version.
func (s *Store) Version() uint64 {
	var v uint64
	s.bolt.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketMeta).Get(keyVersion); len(b) == 8 {
			v = keyToInt(b)
		}
		return nil
	})
	return v
}

// CreateAccount stores a new account with a bcrypt hash of password.
func (s *Store) CreateAccount(name, password string, team int, champion string) (*Account, error) {
	key := accountKey(name)
	if len(key) == 0 {
		return nil, errors.New("boltstore: create account: empty name")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("boltstore: hash password: %w", err)
	}
	acct := &Account{
		Name:         name,
		PasswordHash: hash,
		Team:         team,
		Champion:     champion,
		Created:      time.Now(),
	}
	data, err := encode(acct)
	if err != nil {
		return nil, fmt.Errorf("boltstore: encode account %s: %w", name, err)
	}
	err = s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		if b.Get(key) != nil {
			return ErrAccountExists
		}
		return b.Put(key, data)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("boltstore: created account %s", name)
	return acct, nil
}

// GetAccount loads an account by name.
func (s *Store) GetAccount(name string) (*Account, error) {
	var acct *Account
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAccounts).Get(accountKey(name))
		if data == nil {
			return ErrAccountNotFound
		}
		var err error
		acct, err = decodeAccount(data)
		return err
	})
	return acct, err
}

// PutAccount overwrites an existing account.
func (s *Store) PutAccount(acct *Account) error {
	data, err := encode(acct)
	if err != nil {
		return fmt.Errorf("boltstore: encode account %s: %w", acct.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put(accountKey(acct.Name), data)
	})
}

// Authenticate checks a password and stamps the login time.
func (s *Store) Authenticate(name, password string) (*Account, error) {
	acct, err := s.GetAccount(name)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)) != nil {
		return nil, ErrBadPassword
	}
	acct.LastLogin = time.Now()
	if err := s.PutAccount(acct); err != nil {
		return nil, fmt.Errorf("boltstore: stamp login: %w", err)
	}
	return acct, nil
}

// SetAdmin grants or revokes admin on an existing account.
func (s *Store) SetAdmin(name string, admin bool) error {
	acct, err := s.GetAccount(name)
	if err != nil {
		return err
	}
	acct.Admin = admin
	return s.PutAccount(acct)
}

// Accounts returns every account sorted by name.
func (s *Store) Accounts() ([]*Account, error) {
	var out []*Account
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
			acct, err := decodeAccount(v)
			if err != nil {
				return fmt.Errorf("decode account %s: %w", k, err)
			}
			out = append(out, acct)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load accounts: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PutMatch appends a match record and assigns its ID.
func (s *Store) PutMatch(m *MatchRecord) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMatches)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		m.ID = id
		data, err := encode(m)
		if err != nil {
			return fmt.Errorf("boltstore: encode match: %w", err)
		}
		return b.Put(intToKey(id), data)
	})
}

// Matches returns match history, oldest first.
func (s *Store) Matches() ([]*MatchRecord, error) {
	var out []*MatchRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMatches).ForEach(func(k, v []byte) error {
			m, err := decodeMatch(v)
			if err != nil {
				return fmt.Errorf("decode match %d: %w", keyToInt(k), err)
			}
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load matches: %w", err)
	}
	return out, nil
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		if err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return nil
	})
}
