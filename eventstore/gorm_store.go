package eventstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"example.com/backstage/services/orchestrator/config"
	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/models"
	"example.com/backstage/services/orchestrator/notifications"
)

// GormStore implements EventStore on an embedded SQLite file via GORM
type GormStore struct {
	dsn               string
	inMemory          bool
	snapshotFrequency int
	persistInterval   time.Duration

	db  *gorm.DB
	bus *notifications.Bus

	// mu serializes version assignment and the durable write so two
	// back-to-back appends to one aggregate never share a version.
	mu       sync.Mutex
	versions map[string]int
	seq      uint64

	// persistMu keeps the auto-persist timer and manual Persist
	// calls from running a flush concurrently.
	persistMu sync.Mutex

	initMu      sync.RWMutex
	initialized bool
	stopPersist chan struct{}
	persistDone chan struct{}
}

// NewGormStore creates an event store from the service configuration
func NewGormStore(cfg config.Config, bus *notifications.Bus) *GormStore {
	return &GormStore{
		dsn:               cfg.DBSource,
		inMemory:          cfg.DBSource == ":memory:" || strings.Contains(cfg.DBSource, "mode=memory"),
		snapshotFrequency: cfg.SnapshotFrequency,
		persistInterval:   cfg.PersistInterval,
		bus:               bus,
	}
}

// Initialize opens the database, runs migrations, and loads the version
// tracker. Calling it on an initialized store is a no-op.
func (s *GormStore) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized {
		return nil
	}

	db, err := gorm.Open(sqlite.Open(s.dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open event store database: %w", err)
	}

	if !s.inMemory {
		if err := db.WithContext(ctx).Exec("PRAGMA journal_mode=WAL").Error; err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.Event{}, &models.Snapshot{}); err != nil {
		return fmt.Errorf("failed to migrate event store schema: %w", err)
	}

	versions, maxSeq, err := loadVersionTracker(ctx, db)
	if err != nil {
		return err
	}

	s.db = db
	s.versions = versions
	s.seq = maxSeq
	s.initialized = true

	if s.persistInterval > 0 && !s.inMemory {
		s.stopPersist = make(chan struct{})
		s.persistDone = make(chan struct{})
		go s.autoPersist()
	}

	log.Info().
		Str("source", s.dsn).
		Int("aggregates", len(versions)).
		Uint64("sequence", maxSeq).
		Msg("Event store initialized")

	s.bus.Publish(notifications.Notification{Topic: notifications.TopicStoreInitialized})
	return nil
}

// loadVersionTracker scans the log once to rebuild the authoritative
// aggregate version map and the global sequence counter.
func loadVersionTracker(ctx context.Context, db *gorm.DB) (map[string]int, uint64, error) {
	var rows []struct {
		AggregateID string
		MaxVersion  int
	}
	if err := db.WithContext(ctx).
		Model(&models.Event{}).
		Select("aggregate_id, MAX(version) AS max_version").
		Group("aggregate_id").
		Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load version tracker: %w", err)
	}

	versions := make(map[string]int, len(rows))
	for _, row := range rows {
		versions[row.AggregateID] = row.MaxVersion
	}

	var maxSeq uint64
	if err := db.WithContext(ctx).
		Model(&models.Event{}).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load sequence counter: %w", err)
	}

	return versions, maxSeq, nil
}

func (s *GormStore) ready() error {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

// Append assigns the event's version and sequence, persists it, and
// notifies listeners. A snapshot recommendation is published when the
// new version is a multiple of the configured frequency; it is advisory
// and does not force a snapshot.
func (s *GormStore) Append(ctx context.Context, event *domain.Event) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.versions[event.AggregateID] + 1
	sequence := s.seq + 1

	row := models.Event{
		ID:            event.ID,
		Type:          event.Type,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		Version:       version,
		Sequence:      sequence,
		Timestamp:     toMillis(event.Timestamp),
		Source:        event.Source,
		Payload:       event.Payload,
		Metadata:      event.Metadata,
		CausationID:   event.CausationID,
		CorrelationID: event.CorrelationID,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("aggregate %s version %d: %w", event.AggregateID, version, ErrVersionConflict)
		}
		return fmt.Errorf("failed to append event: %w", err)
	}

	s.versions[event.AggregateID] = version
	s.seq = sequence
	event.Version = version
	event.Sequence = sequence

	log.Debug().
		Str("aggregateID", event.AggregateID).
		Str("eventType", event.Type).
		Int("version", version).
		Uint64("sequence", sequence).
		Msg("Event appended")

	s.bus.Publish(notifications.Notification{
		Topic:       notifications.TopicEventAppended,
		AggregateID: event.AggregateID,
		EventType:   event.Type,
	})

	if s.snapshotFrequency > 0 && version%s.snapshotFrequency == 0 {
		s.bus.Publish(notifications.Notification{
			Topic:       notifications.TopicSnapshotRecommended,
			AggregateID: event.AggregateID,
			EventType:   event.Type,
		})
	}

	return nil
}

// GetEvents returns one aggregate's events in ascending version order.
// An unknown aggregate yields an empty slice.
func (s *GormStore) GetEvents(ctx context.Context, aggregateID string, fromVersion int) ([]domain.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC")
	if fromVersion > 1 {
		query = query.Where("version >= ?", fromVersion)
	}

	var rows []models.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	return toDomainEvents(rows), nil
}

// GetEventsByType returns all events of one type ordered by timestamp
func (s *GormStore) GetEventsByType(ctx context.Context, eventType string) ([]domain.Event, error) {
	return s.Query(ctx, Filter{EventType: eventType})
}

// Query returns events matching the filter, ordered by timestamp
func (s *GormStore) Query(ctx context.Context, filter Filter) ([]domain.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Event{})
	if filter.AggregateID != "" {
		query = query.Where("aggregate_id = ?", filter.AggregateID)
	}
	if filter.AggregateType != "" {
		query = query.Where("aggregate_type = ?", filter.AggregateType)
	}
	if filter.EventType != "" {
		query = query.Where("type = ?", filter.EventType)
	}
	if !filter.Since.IsZero() {
		query = query.Where("timestamp >= ?", toMillis(filter.Since))
	}
	if !filter.Until.IsZero() {
		query = query.Where("timestamp <= ?", toMillis(filter.Until))
	}
	if filter.MinVersion > 0 {
		query = query.Where("version >= ?", filter.MinVersion)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.Event
	if err := query.Order("timestamp ASC, sequence ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	return toDomainEvents(rows), nil
}

// Replay returns an iterator over all events with sequence greater than
// fromSequence. The iterator is bounded by the log size at call time
// and never blocks waiting for future writes.
func (s *GormStore) Replay(ctx context.Context, fromSequence uint64) (*Replayer, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	maxSeq := s.seq
	s.mu.Unlock()

	return newReplayer(s, fromSequence, maxSeq), nil
}

// SaveSnapshot upserts the aggregate's snapshot. A snapshot may not
// reference a version beyond what has been appended.
func (s *GormStore) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	current := s.versions[snapshot.AggregateID]
	s.mu.Unlock()
	if snapshot.Version > current {
		return fmt.Errorf("aggregate %s at version %d, snapshot at %d: %w",
			snapshot.AggregateID, current, snapshot.Version, ErrInvalidSnapshot)
	}

	row := models.Snapshot{
		AggregateID:   snapshot.AggregateID,
		AggregateType: snapshot.AggregateType,
		Version:       snapshot.Version,
		State:         snapshot.State,
		Timestamp:     toMillis(snapshot.Timestamp),
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "aggregate_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	log.Debug().
		Str("aggregateID", snapshot.AggregateID).
		Int("version", snapshot.Version).
		Msg("Snapshot saved")

	s.bus.Publish(notifications.Notification{
		Topic:       notifications.TopicSnapshotSaved,
		AggregateID: snapshot.AggregateID,
	})

	return nil
}

// GetSnapshot returns the latest snapshot, or nil when none exists
func (s *GormStore) GetSnapshot(ctx context.Context, aggregateID string) (*domain.Snapshot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var row models.Snapshot
	err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &domain.Snapshot{
		AggregateID:   row.AggregateID,
		AggregateType: row.AggregateType,
		Version:       row.Version,
		State:         row.State,
		Timestamp:     fromMillis(row.Timestamp),
	}, nil
}

// GetStats summarizes the log for observability
func (s *GormStore) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.ready(); err != nil {
		return stats, err
	}

	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Event{}).Count(&stats.TotalEvents).Error; err != nil {
		return stats, fmt.Errorf("failed to count events: %w", err)
	}

	stats.EventsByType = make(map[string]int64)
	var byType []struct {
		Type  string
		Count int64
	}
	if err := db.Model(&models.Event{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return stats, fmt.Errorf("failed to count events by type: %w", err)
	}
	for _, row := range byType {
		stats.EventsByType[row.Type] = row.Count
	}

	stats.EventsByAggType = make(map[string]int64)
	var byAgg []struct {
		AggregateType string
		Count         int64
	}
	if err := db.Model(&models.Event{}).
		Select("aggregate_type, COUNT(*) AS count").
		Group("aggregate_type").
		Scan(&byAgg).Error; err != nil {
		return stats, fmt.Errorf("failed to count events by aggregate type: %w", err)
	}
	for _, row := range byAgg {
		stats.EventsByAggType[row.AggregateType] = row.Count
	}

	if err := db.Model(&models.Event{}).
		Distinct("aggregate_id").
		Count(&stats.AggregateCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count aggregates: %w", err)
	}

	if err := db.Model(&models.Snapshot{}).Count(&stats.SnapshotCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count snapshots: %w", err)
	}

	if stats.TotalEvents > 0 {
		var oldest, newest int64
		if err := db.Model(&models.Event{}).Select("MIN(timestamp)").Scan(&oldest).Error; err != nil {
			return stats, fmt.Errorf("failed to read oldest timestamp: %w", err)
		}
		if err := db.Model(&models.Event{}).Select("MAX(timestamp)").Scan(&newest).Error; err != nil {
			return stats, fmt.Errorf("failed to read newest timestamp: %w", err)
		}
		stats.OldestTimestamp = fromMillis(oldest)
		stats.NewestTimestamp = fromMillis(newest)
	}

	return stats, nil
}

// Persist flushes the backing store to disk. Manual calls and the
// auto-persist timer are serialized behind a single in-flight flush.
func (s *GormStore) Persist(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if !s.inMemory {
		if err := s.db.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
			return fmt.Errorf("failed to checkpoint event store: %w", err)
		}
	}

	s.bus.Publish(notifications.Notification{Topic: notifications.TopicStorePersisted})
	return nil
}

// autoPersist flushes on a timer until shutdown. Failures are reported
// on the bus since there is no caller to return them to.
func (s *GormStore) autoPersist() {
	defer close(s.persistDone)

	ticker := time.NewTicker(s.persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Persist(context.Background()); err != nil {
				log.Error().Err(err).Msg("Auto-persist failed")
				s.bus.Publish(notifications.Notification{
					Topic: notifications.TopicPersistError,
					Err:   err,
				})
			}
		case <-s.stopPersist:
			return
		}
	}
}

// Shutdown performs a final flush and releases the database
func (s *GormStore) Shutdown(ctx context.Context) error {
	s.initMu.Lock()
	if !s.initialized {
		s.initMu.Unlock()
		return ErrNotInitialized
	}

	if s.stopPersist != nil {
		close(s.stopPersist)
		<-s.persistDone
		s.stopPersist = nil
		s.persistDone = nil
	}
	s.initMu.Unlock()

	if err := s.Persist(ctx); err != nil {
		log.Error().Err(err).Msg("Final persist failed during shutdown")
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	sqlDB, err := s.db.DB()
	if err == nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close event store database")
		}
	}

	s.initialized = false
	s.db = nil
	s.versions = nil

	log.Info().Str("source", s.dsn).Msg("Event store shut down")
	s.bus.Publish(notifications.Notification{Topic: notifications.TopicStoreShutdown})
	return nil
}

func isConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toDomainEvents(rows []models.Event) []domain.Event {
	events := make([]domain.Event, len(rows))
	for i, row := range rows {
		events[i] = toDomainEvent(row)
	}
	return events
}

func toDomainEvent(row models.Event) domain.Event {
	return domain.Event{
		ID:            row.ID,
		Type:          row.Type,
		AggregateID:   row.AggregateID,
		AggregateType: row.AggregateType,
		Version:       row.Version,
		Sequence:      row.Sequence,
		Timestamp:     fromMillis(row.Timestamp),
		Source:        row.Source,
		Payload:       row.Payload,
		Metadata:      row.Metadata,
		CausationID:   row.CausationID,
		CorrelationID: row.CorrelationID,
	}
}
