// Package visitstore is the durable per-ride visit map. It holds exactly
// one ride's visit set at a time: correctness in-session comes from the
// in-memory map, durability is best-effort through the storage slot.
package visitstore

import (
	"context"
	"errors"
	"sync"

	"driver-client/internal/common/logger"
	"driver-client/internal/domain/ride"
	"driver-client/internal/storage"
)

// document is the persisted shape of the visits slot.
type document struct {
	RideID string                   `json:"ride_id"`
	Visits map[int]ride.VisitRecord `json:"visits"`
}

// Store tracks which waypoints of the current ride have been visited.
type Store struct {
	db  *storage.Store
	log *logger.Logger

	mu     sync.RWMutex
	rideID string
	visits map[int]ride.VisitRecord
}

// New returns an empty store over the durable storage.
func New(db *storage.Store, log *logger.Logger) *Store {
	return &Store{
		db:     db,
		log:    log,
		visits: make(map[int]ride.VisitRecord),
	}
}

// Load adopts rideID as the current ride and reloads its persisted visits
// if the durable slot belongs to the same ride (app-restart recovery).
// A slot for a different ride is discarded.
func (s *Store) Load(ctx context.Context, rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rideID = rideID
	s.visits = make(map[int]ride.VisitRecord)

	var doc document
	err := s.db.Get(storage.KeyVisits, &doc)
	switch {
	case err == nil && doc.RideID == rideID:
		for idx, record := range doc.Visits {
			s.visits[idx] = record
		}
		if len(s.visits) > 0 {
			s.log.Info(ctx, "visits_recovered", "Recovered persisted visits for in-progress ride",
				map[string]any{"ride_id": rideID, "count": len(s.visits)})
		}
	case err == nil:
		// stale slot from a previous ride
		s.persistLocked(ctx)
	case !errors.Is(err, storage.ErrNotFound):
		s.log.Error(ctx, "visits_load_failed", "Failed to load persisted visits", err,
			map[string]any{"ride_id": rideID})
	}
}

// Get returns a copy of the visit map for rideID. A ride other than the
// current one has no visits by definition.
func (s *Store) Get(rideID string) map[int]ride.VisitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]ride.VisitRecord, len(s.visits))
	if rideID != s.rideID {
		return out
	}
	for idx, record := range s.visits {
		out[idx] = record
	}
	return out
}

// MarkVisited records a visit, first-write-wins: marking the same
// (ride, waypoint) again returns the original record unchanged. The second
// return reports whether a new record was created. A storage write failure
// is logged and does not block the in-memory update.
func (s *Store) MarkVisited(ctx context.Context, rideID string, index int, timestampMs int64) (ride.VisitRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rideID != s.rideID {
		// ride switch without Load; start a fresh set
		s.rideID = rideID
		s.visits = make(map[int]ride.VisitRecord)
	}

	if existing, ok := s.visits[index]; ok {
		return existing, false, nil
	}

	record, err := ride.NewVisitRecord(rideID, index, timestampMs)
	if err != nil {
		return ride.VisitRecord{}, false, err
	}

	s.visits[index] = record
	s.persistLocked(ctx)
	return record, true, nil
}

// Clear wipes the visit set for rideID, in memory and on disk. Clearing a
// ride that is not current only touches the durable slot.
func (s *Store) Clear(ctx context.Context, rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rideID == s.rideID {
		s.rideID = ""
		s.visits = make(map[int]ride.VisitRecord)
	}
	if err := s.db.Delete(storage.KeyVisits); err != nil {
		s.log.Error(ctx, "visits_clear_failed", "Failed to clear persisted visits", err,
			map[string]any{"ride_id": rideID})
	}
}

// persistLocked writes the current set to the durable slot. Best-effort;
// the caller holds s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	doc := document{RideID: s.rideID, Visits: s.visits}
	if err := s.db.Put(storage.KeyVisits, doc); err != nil {
		s.log.Error(ctx, "visits_persist_failed", "Failed to persist visit state", err,
			map[string]any{"ride_id": s.rideID, "count": len(s.visits)})
	}
}
