// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package log

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var storeBucket = []byte("logs-v1")

const storeMaxKeys = 100000

// Store persists the log feed in a bbolt database, newest first,
// bounded to storeMaxKeys entries.
type Store struct {
	dbPath  string
	maxKeys int

	db *bolt.DB
	wg *sync.WaitGroup

	// Wait for the last log to be saved before closing the db.
	saveWG *sync.WaitGroup
}

// NewStore new log store.
func NewStore(dbPath string, wg *sync.WaitGroup) *Store {
	return &Store{
		dbPath:  dbPath,
		maxKeys: storeMaxKeys,

		wg:     wg,
		saveWG: &sync.WaitGroup{},
	}
}

// Init opens the database. It is closed when ctx is canceled.
func (s *Store) Init(ctx context.Context) error {
	dbOpts := &bolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bolt.Open(s.dbPath, 0o600, dbOpts)
	if err != nil {
		return fmt.Errorf("could not open database: %w: %v", err, s.dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(storeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("could not create bucket: %w", err)
	}

	s.db = db

	s.wg.Add(1)
	go func() {
		<-ctx.Done()
		s.saveWG.Wait()
		db.Close()
		s.wg.Done()
	}()

	return nil
}

// SaveLogs subscribes to the logger and saves its feed until ctx is
// canceled.
func (s *Store) SaveLogs(ctx context.Context, l *Logger) {
	feed, cancel := l.Subscribe()
	defer cancel()

	s.saveWG.Add(1)
	for {
		select {
		case <-ctx.Done():
			s.saveWG.Done()
			return
		case log := <-feed:
			if err := s.saveLog(log); err != nil {
				fmt.Fprintf(os.Stderr, "could not save log: %v %v", log.Msg, err)
			}
		}
	}
}

func (s *Store) saveLog(log Log) error {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(log.Time))

	value, err := json.Marshal(log)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(storeBucket)

		// Drop the oldest entry when full.
		if b.Stats().KeyN >= s.maxKeys {
			first, _ := b.Cursor().First()
			if err := b.Delete(first); err != nil {
				return err
			}
		}
		return b.Put(key, value)
	})
}

// Query filter. Nil slices match everything, Before of 0 means now.
type Query struct {
	Levels   []Level
	Sources  []string
	Captures []string
	Before   UnixMillisecond
	Limit    int
}

func (q Query) match(log Log) bool {
	return matchLevel(q.Levels, log.Level) &&
		matchString(q.Sources, log.Src) &&
		matchString(q.Captures, log.Capture)
}

func matchLevel(levels []Level, level Level) bool {
	if levels == nil {
		return true
	}
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func matchString(values []string, value string) bool {
	if values == nil {
		return true
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Query returns saved logs matching q, newest first.
func (s *Store) Query(q Query) ([]Log, error) {
	limit := q.Limit
	if limit == 0 {
		limit = s.maxKeys
	}

	var logs []Log
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(storeBucket).Cursor()

		var key, value []byte
		if q.Before == 0 {
			key, value = c.Last()
		} else {
			before := make([]byte, 8)
			binary.BigEndian.PutUint64(before, uint64(q.Before))

			c.Seek(before)
			key, value = c.Prev()
		}

		for ; key != nil && len(logs) < limit; key, value = c.Prev() {
			var log Log
			if err := json.Unmarshal(value, &log); err != nil {
				return fmt.Errorf("could not unmarshal log: %w", err)
			}
			if q.match(log) {
				logs = append(logs, log)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return logs, nil
}
