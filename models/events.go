package models

// Event represents a domain event row in the database. The column set
// matches the on-disk format consumed by other tooling, so the file
// stays loadable across implementations; Sequence is the store's global
// ordering counter.
type Event struct {
	ID            string `gorm:"column:id;primaryKey" json:"id"`
	Type          string `gorm:"column:type;index" json:"type"`
	AggregateID   string `gorm:"column:aggregate_id;index;uniqueIndex:idx_events_aggregate_version" json:"aggregate_id"`
	AggregateType string `gorm:"column:aggregate_type;index" json:"aggregate_type"`
	Version       int    `gorm:"column:version;uniqueIndex:idx_events_aggregate_version" json:"version"`
	Sequence      uint64 `gorm:"column:sequence;uniqueIndex" json:"sequence"`
	Timestamp     int64  `gorm:"column:timestamp;index" json:"timestamp"`
	Source        string `gorm:"column:source" json:"source"`
	Payload       []byte `gorm:"column:payload" json:"payload"`
	Metadata      []byte `gorm:"column:metadata" json:"metadata"`
	CausationID   string `gorm:"column:causation_id" json:"causation_id"`
	CorrelationID string `gorm:"column:correlation_id" json:"correlation_id"`
}

// TableName overrides the table name
func (Event) TableName() string {
	return "events"
}

// Snapshot represents an aggregate snapshot row. At most one row per
// aggregate; saving a newer snapshot overwrites the older one.
type Snapshot struct {
	AggregateID   string `gorm:"column:aggregate_id;primaryKey" json:"aggregate_id"`
	AggregateType string `gorm:"column:aggregate_type" json:"aggregate_type"`
	Version       int    `gorm:"column:version" json:"version"`
	State         []byte `gorm:"column:state" json:"state"`
	Timestamp     int64  `gorm:"column:timestamp" json:"timestamp"`
}

// TableName overrides the table name
func (Snapshot) TableName() string {
	return "snapshots"
}
