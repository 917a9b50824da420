package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chat-relay/internal/chatstore"
	"chat-relay/internal/models"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when signing up with an email that is already
// registered.
var ErrUserExists = errors.New("user already exists")

var (
	usersBucket    = []byte("users")
	settingsBucket = []byte("settings")

	// The chat snapshot lives under a versioned namespace so a future layout
	// change can migrate or discard stale state.
	chatStoreBucket = []byte("chatstore-v1")
	snapshotKey     = []byte("snapshot")
)

// BoltDB provides persistent storage for users, per-user settings, and chat
// snapshots through a BoltDB backend. It implements the handler store
// interfaces and chatstore.Persister.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB creates a new BoltDB instance with the specified file path. It
// initializes the database with the required buckets and returns an error if
// the database cannot be opened or initialized. The database file is created
// with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{usersBucket, settingsBucket, chatStoreBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})

	return BoltDB{db: db}, err
}

// Close releases the underlying database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

// CreateUser stores a new user record keyed by email. It returns ErrUserExists
// if the email is already registered.
func (b BoltDB) CreateUser(_ context.Context, user models.User) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(usersBucket)

		if bkt.Get([]byte(user.Email)) != nil {
			return ErrUserExists
		}

		v, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}

		return bkt.Put([]byte(user.Email), v)
	})
}

// UserByEmail retrieves a user record, or ErrNotFound when the email is not
// registered.
func (b BoltDB) UserByEmail(_ context.Context, email string) (models.User, error) {
	var user models.User
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(usersBucket).Get([]byte(email))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SaveSettings upserts the settings record for the given user.
func (b BoltDB) SaveSettings(_ context.Context, userID string, settings models.UserSettings) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		v, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		return tx.Bucket(settingsBucket).Put([]byte(userID), v)
	})
}

// Settings retrieves the settings record for the given user. A user without a
// stored record gets the zero value.
func (b BoltDB) Settings(_ context.Context, userID string) (models.UserSettings, error) {
	var settings models.UserSettings
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(settingsBucket).Get([]byte(userID))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &settings)
	})
	if err != nil {
		return models.UserSettings{}, err
	}
	return settings, nil
}

// SaveSnapshot stores the chat store snapshot, replacing any previous one.
func (b BoltDB) SaveSnapshot(snapshot chatstore.Snapshot) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		v, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		return tx.Bucket(chatStoreBucket).Put(snapshotKey, v)
	})
}

// LoadSnapshot retrieves the stored chat store snapshot. The second return
// value reports whether a snapshot was present.
func (b BoltDB) LoadSnapshot() (chatstore.Snapshot, bool, error) {
	var snapshot chatstore.Snapshot
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chatStoreBucket).Get(snapshotKey)
		if v == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(v, &snapshot); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return chatstore.Snapshot{}, false, err
	}
	return snapshot, found, nil
}
