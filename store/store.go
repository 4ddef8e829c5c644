// Package store is the on-disk persistence layer for a channel's
// transcript, its wallet material, and its revocation ledger. It
// follows channeldb's bucket-per-concern layout and version/migration
// mechanism, adapted from one database-wide schema (nodes, edges,
// invoices) down to the handful of buckets a single bilateral channel
// needs.
package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltlabs-coin/boltchan/revocation"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

var byteOrder = binary.BigEndian

const (
	dbFileName       = "boltchan.db"
	dbFilePermission = 0600
)

var (
	// ErrChannelNotFound is returned by LoadChannelState and LoadWallet
	// when no row exists for the requested name.
	ErrChannelNotFound = errors.New("store: no channel with that name")

	metaBucket    = []byte("meta")
	channelBucket = []byte("channels")
	walletBucket  = []byte("wallets")
	ledgerBucket  = []byte("ledgers")
)

// migration mutates a prior database version's buckets into the next.
type migration func(tx *bbolt.Tx) error

type version struct {
	number    uint32
	migration migration
}

// dbVersions lists every schema version this package knows how to
// reach. Appending an entry here is how a future field addition gets
// rolled out to existing databases without losing what's on disk.
var dbVersions = []version{
	{number: 0, migration: nil},
}

// DB is a single channel database: one file, shared across every
// channel a process is a party to.
type DB struct {
	*bbolt.DB
	path string
}

// Open opens (creating if necessary) the channel database rooted at
// dir, applying any pending migrations.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, dbFileName)

	if !fileExists(path) {
		if err := create(dir, path); err != nil {
			return nil, err
		}
	}

	bdb, err := bbolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: bdb, path: path}
	if err := db.syncVersions(); err != nil {
		bdb.Close()
		return nil, err
	}
	return db, nil
}

func create(dir, path string) error {
	if !fileExists(dir) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	bdb, err := bbolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return err
	}
	defer bdb.Close()

	return bdb.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{metaBucket, channelBucket, walletBucket, ledgerBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return putVersion(tx, latestVersion())
	})
}

func latestVersion() uint32 {
	v := dbVersions[0].number
	for _, dv := range dbVersions {
		if dv.number > v {
			v = dv.number
		}
	}
	return v
}

func (d *DB) syncVersions() error {
	return d.Update(func(tx *bbolt.Tx) error {
		current, err := getVersion(tx)
		if err != nil {
			return err
		}
		for _, dv := range dbVersions {
			if dv.number <= current || dv.migration == nil {
				continue
			}
			if err := dv.migration(tx); err != nil {
				return fmt.Errorf("store: migration to version %d failed: %w", dv.number, err)
			}
			current = dv.number
		}
		return putVersion(tx, current)
	})
}

func getVersion(tx *bbolt.Tx) (uint32, error) {
	b := tx.Bucket(metaBucket)
	if b == nil {
		return 0, nil
	}
	raw := b.Get([]byte("version"))
	if raw == nil {
		return 0, nil
	}
	return byteOrder.Uint32(raw), nil
}

func putVersion(tx *bbolt.Tx, v uint32) error {
	b, err := tx.CreateBucketIfNotExists(metaBucket)
	if err != nil {
		return err
	}
	buf := make([]byte, 4)
	byteOrder.PutUint32(buf, v)
	return b.Put([]byte("version"), buf)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PutChannelState stores the wire-encoded transcript for the channel
// named name.
func (d *DB) PutChannelState(name string, encoded []byte) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(channelBucket)
		return b.Put([]byte(name), encoded)
	})
}

// LoadChannelState returns the wire-encoded transcript previously
// stored for name.
func (d *DB) LoadChannelState(name string) ([]byte, error) {
	var out []byte
	err := d.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(channelBucket)
		raw := b.Get([]byte(name))
		if raw == nil {
			return ErrChannelNotFound
		}
		out = append([]byte(nil), raw...)
		return nil
	})
	return out, err
}

// PutWallet stores the wire-encoded wallet commitment opening and
// signature a customer needs to resume a channel after a restart.
func (d *DB) PutWallet(name string, encoded []byte) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(walletBucket)
		return b.Put([]byte(name), encoded)
	})
}

// LoadWallet returns the wire-encoded wallet previously stored for name.
func (d *DB) LoadWallet(name string) ([]byte, error) {
	var out []byte
	err := d.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(walletBucket)
		raw := b.Get([]byte(name))
		if raw == nil {
			return ErrChannelNotFound
		}
		out = append([]byte(nil), raw...)
		return nil
	})
	return out, err
}

// PutLedger persists every entry of a revocation ledger under name, one
// row per one-time key, keyed by its compressed serialization.
func (d *DB) PutLedger(name string, entries []revocation.Entry) error {
	return d.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(ledgerBucket)
		chanBucket, err := root.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		for _, e := range entries {
			key := e.Wpk.SerializeCompressed()
			if err := chanBucket.Put(key, encodeEntry(e)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadLedger reconstructs every entry previously persisted for name.
func (d *DB) LoadLedger(name string) ([]revocation.Entry, error) {
	var out []revocation.Entry
	err := d.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(ledgerBucket)
		chanBucket := root.Bucket([]byte(name))
		if chanBucket == nil {
			return nil
		}
		return chanBucket.ForEach(func(k, v []byte) error {
			e, err := decodeEntry(k, v)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

// encodeEntry lays out a revocation row as a 1-byte presence flag
// followed by the token bytes, mirroring the length-implicit encoding
// channeldb uses for optional trailing fields.
func encodeEntry(e revocation.Entry) []byte {
	if e.Token == nil {
		return []byte{0}
	}
	return append([]byte{1}, e.Token...)
}

func decodeEntry(key, val []byte) (revocation.Entry, error) {
	pub, err := btcec.ParsePubKey(key)
	if err != nil {
		return revocation.Entry{}, err
	}
	if len(val) == 0 || val[0] == 0 {
		return revocation.Entry{Wpk: pub}, nil
	}
	return revocation.Entry{Wpk: pub, Token: append([]byte(nil), val[1:]...)}, nil
}
