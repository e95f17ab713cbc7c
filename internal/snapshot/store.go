package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/chrono"
	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/components/kv"
	"eclassbot-backend/internal/components/telemetry"
)

const (
	report_db_query   = "db.query"
	report_kv         = "kv"
	report_decode     = "snapshot.decode"
	report_cache_fill = "snapshot.cache-fill"
)

// CacheTTL is how long the cached copy of a snapshot lives in the KV.
const CacheTTL = 120 * time.Hour

var ErrNotFound = fmt.Errorf("no snapshot stored for student")

func CacheKey(studentID string) string {
	return "snapshot:" + studentID
}

// Store persists full snapshots in the database and keeps a trimmed copy
// in the KV for fast read-back.
type Store struct {
	kv   kv.API
	time chrono.TimeAPI
	tel  telemetry.API
}

func NewStore(kv kv.API, time chrono.TimeAPI, tel telemetry.API) Store {
	assert.NotNil(kv)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Store{
		kv:   kv,
		time: time,
		tel:  telemetry.NewScopedAPI("snapshot", tel),
	}
}

// Save upserts the full snapshot through q, which is usually the student's
// open transaction.
func (s Store) Save(ctx context.Context, q *db.Queries, studentID string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	param := db.UpsertSnapshotParams{
		StudentID: studentID,
		Payload:   string(payload),
		UpdatedAt: s.time.Now().Unix(),
	}
	err = q.UpsertSnapshot(ctx, param)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "UpsertSnapshot", studentID)
		return err
	}
	return nil
}

// Cache stores the trimmed copy of snap under the student's cache key.
func (s Store) Cache(ctx context.Context, studentID string, snap Snapshot) (Snapshot, error) {
	trimmed := snap.ForCache(s.time.Now())
	payload, err := json.Marshal(trimmed)
	if err != nil {
		return Snapshot{}, err
	}
	err = s.kv.Set(ctx, CacheKey(studentID), string(payload), CacheTTL)
	if err != nil {
		s.tel.ReportBroken(report_kv, err, "Set", CacheKey(studentID))
		return Snapshot{}, err
	}
	return trimmed, nil
}

// Cached returns the trimmed snapshot of a student, reading the KV first
// and falling back to the database, in which case the cache is refilled.
func (s Store) Cached(ctx context.Context, q *db.Queries, studentID string) (Snapshot, error) {
	raw, ok, err := s.kv.Get(ctx, CacheKey(studentID))
	if err != nil {
		s.tel.ReportWarning(report_kv, err, "Get", CacheKey(studentID))
	}
	if ok {
		var snap Snapshot
		err = json.Unmarshal([]byte(raw), &snap)
		if err == nil {
			return snap, nil
		}
		s.tel.ReportWarning(report_decode, err, CacheKey(studentID))
	}

	row, err := q.GetSnapshot(ctx, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetSnapshot", studentID)
		return Snapshot{}, err
	}
	var full Snapshot
	err = json.Unmarshal([]byte(row.Payload), &full)
	if err != nil {
		s.tel.ReportBroken(report_decode, err, studentID)
		return Snapshot{}, err
	}

	trimmed, err := s.Cache(ctx, studentID, full)
	if err != nil {
		s.tel.ReportWarning(report_cache_fill, err, studentID)
		return full.ForCache(s.time.Now()), nil
	}
	return trimmed, nil
}
