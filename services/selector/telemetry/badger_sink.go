// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// spoolKeyPrefix versions the storage layout so format changes cannot
// collide with old entries.
const spoolKeyPrefix = "selection/telemetry/v1/"

// defaultSpoolTTL bounds how long spooled records live. BadgerDB's GC
// enforces expiry; no application-level sweep is needed.
const defaultSpoolTTL = 7 * 24 * time.Hour

// ErrRecordNotFound is returned by CompleteRecord when the target
// record is absent or already expired.
var ErrRecordNotFound = errors.New("telemetry: record not found")

// =============================================================================
// Badger Spool
// =============================================================================

// BadgerSink spools records into an embedded BadgerDB instance.
//
// Description:
//
//	Records are JSON-encoded under selection/telemetry/v1/{selectionID}
//	with a TTL. The spool is a local buffer for later export, not a
//	query store — iteration order and indexing do not matter.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions are
// per-call.
type BadgerSink struct {
	db  *badger.DB
	ttl time.Duration

	// ownsDB is set only when this sink opened the database itself;
	// Close on a caller-owned database is a no-op.
	ownsDB bool
}

// OpenBadgerSink opens (or creates) a spool at dir.
//
// Inputs:
//   - dir: Directory for the BadgerDB files. Created if absent.
//   - ttl: Record lifetime; non-positive uses the 7-day default.
//   - logger: Receives BadgerDB's internal logging. May be nil to
//     silence it.
//
// Outputs:
//   - *BadgerSink: The opened sink. Caller must Close it.
//   - error: Non-nil if the directory or database cannot be opened.
func OpenBadgerSink(dir string, ttl time.Duration, logger *slog.Logger) (*BadgerSink, error) {
	if dir == "" {
		return nil, errors.New("telemetry: spool directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("telemetry: create spool directory %s: %w", dir, err)
	}
	if ttl <= 0 {
		ttl = defaultSpoolTTL
	}

	opts := badger.DefaultOptions(dir).WithSyncWrites(false)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open spool: %w", err)
	}
	return &BadgerSink{db: db, ttl: ttl, ownsDB: true}, nil
}

// NewBadgerSinkWithDB wraps an already-opened database. The caller owns
// the DB lifecycle; Close on the sink is then a no-op.
func NewBadgerSinkWithDB(db *badger.DB, ttl time.Duration) *BadgerSink {
	if ttl <= 0 {
		ttl = defaultSpoolTTL
	}
	return &BadgerSink{db: db, ttl: ttl}
}

// Write implements Sink.Write.
func (s *BadgerSink) Write(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}
	key := []byte(spoolKeyPrefix + record.SelectionID)
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, encoded).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
}

// Read retrieves one spooled record by selection ID. Returns
// (nil, nil) when the record is absent or expired.
func (s *BadgerSink) Read(_ context.Context, selectionID string) (*Record, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(spoolKeyPrefix + selectionID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: reading spool: %w", err)
	}
	return decodeRecord(raw)
}

// CompleteRecord attaches execution actuals to a spooled record.
//
// Description:
//
//	Called by execution collaborators once the selected pattern has
//	actually run, so spooled estimates can later be compared against
//	reality. The rewrite keeps the record's remaining TTL semantics
//	simple: the clock restarts from now.
//
// Outputs:
//   - error: ErrRecordNotFound when the record is absent or expired.
func (s *BadgerSink) CompleteRecord(ctx context.Context, selectionID string, actualDurationMs int64, actualCost float64, feedback string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := []byte(spoolKeyPrefix + selectionID)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		record.ActualDurationMs = &actualDurationMs
		record.ActualCost = &actualCost
		record.UserFeedback = feedback
		encoded, err := encodeRecord(record)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, encoded).WithTTL(s.ttl))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// Close releases the underlying database when this sink opened it.
func (s *BadgerSink) Close() error {
	if s.db == nil || !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
