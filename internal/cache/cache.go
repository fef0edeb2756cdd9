// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache stores the published interfaces of modules on disk,
// keyed by a digest of their source and of their dependencies'
// digests, so that unchanged dependencies need not be checked again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/buildstar/starcheck/typing"
)

var bucketInterfaces = []byte("interfaces")

// A Key identifies a module's source together with its dependencies.
type Key [sha256.Size]byte

// KeyOf returns the key of a module with the given source whose loads
// have the given keys, checked under the configuration whose digest is
// config. The order of deps is immaterial.
func KeyOf(config Key, src []byte, deps ...Key) Key {
	sorted := append([]Key(nil), deps...)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i][:]) < string(sorted[j][:])
	})
	h := sha256.New()
	fmt.Fprintf(h, "starcheck/%d\x00", schemaVersion)
	h.Write(config[:])
	h.Write(src)
	for _, d := range sorted {
		h.Write(d[:])
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Digest returns the digest of a sequence of strings, such as the
// settings that affect checking. Order matters.
func Digest(parts ...string) Key {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s", len(p), p)
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// A Cache is a database of interfaces. It is safe for concurrent use.
// A nil *Cache is valid and empty.
type Cache struct {
	db *bolt.DB
}

// Open opens the cache database at path, creating it if necessary.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketInterfaces)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the interface stored under k. Entries written by another
// schema version are treated as absent.
func (c *Cache) Get(k Key) (*typing.Interface, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketInterfaces).Get(k[:]); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, err
	}
	iface, err := Decode(data)
	if errors.Is(err, ErrSchema) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache entry %s: %w", k, err)
	}
	return iface, true, nil
}

// Put stores iface under k. It returns an error wrapping
// ErrUnencodable, and stores nothing, if iface holds a type that could
// not be rebuilt.
func (c *Cache) Put(k Key, iface *typing.Interface) error {
	if c == nil {
		return nil
	}
	data, err := Encode(iface)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInterfaces).Put(k[:], data)
	})
}

// Len returns the number of entries.
func (c *Cache) Len() (int, error) {
	if c == nil {
		return 0, nil
	}
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketInterfaces).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes all entries.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketInterfaces); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketInterfaces)
		return err
	})
}
