package database

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotRecord is one persisted cohort snapshot row
type SnapshotRecord struct {
	ID          string    `json:"id" db:"id"`
	Data        string    `json:"-" db:"snapshot_data"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// WebhookEvent records one processed GitHub push delivery
type WebhookEvent struct {
	DeliveryID   string    `json:"delivery_id" db:"delivery_id"`
	RepositoryID string    `json:"repository_id" db:"repository_id"`
	Commits      int       `json:"commits" db:"commits"`
	ReceivedAt   time.Time `json:"received_at" db:"received_at"`
}

// NewSnapshotRecord wraps serialized snapshot JSON with a generated ID
func NewSnapshotRecord(data string, generatedAt time.Time) *SnapshotRecord {
	return &SnapshotRecord{
		ID:          uuid.New().String(),
		Data:        data,
		GeneratedAt: generatedAt,
		CreatedAt:   time.Now(),
	}
}
