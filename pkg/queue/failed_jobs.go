package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FailedJobRecord is a job that could not be enqueued or ran out of
// attempts.
type FailedJobRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EnvelopeID string    `gorm:"size:255;not null;index" json:"envelopeId"`
	Queue      string    `gorm:"size:100;not null;index" json:"queue"`
	Job        string    `gorm:"size:100;not null" json:"job"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Error      string    `gorm:"type:text" json:"error"`
	Attempts   int       `gorm:"not null;default:0" json:"attempts"`
	FailedAt   time.Time `gorm:"not null" json:"failedAt"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// Envelope rebuilds the message that failed, with its attempt count reset.
func (r FailedJobRecord) Envelope(now time.Time) Envelope {
	return Envelope{
		ID:         r.EnvelopeID,
		Queue:      r.Queue,
		Job:        r.Job,
		Payload:    []byte(r.Payload),
		EnqueuedAt: now.UTC(),
	}
}

// FailedJobStore persists failures to the failed_jobs table.
type FailedJobStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewFailedJobStore(db *gorm.DB) *FailedJobStore {
	return &FailedJobStore{db: db, now: time.Now}
}

func (s *FailedJobStore) RecordFailure(ctx context.Context, env Envelope, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	rec := FailedJobRecord{
		EnvelopeID: env.ID,
		Queue:      env.Queue,
		Job:        env.Job,
		Payload:    string(env.Payload),
		Error:      msg,
		Attempts:   env.Attempts,
		FailedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("queue: persist failed job %s: %w", env.ID, err)
	}
	return nil
}

// List returns failures oldest first. limit <= 0 means no limit.
func (s *FailedJobStore) List(ctx context.Context, limit int) ([]FailedJobRecord, error) {
	var out []FailedJobRecord
	q := s.db.WithContext(ctx).Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Retry pushes every recorded failure back through d, deleting each record
// once it is back on its queue. Records that fail to push again stay put.
func (s *FailedJobStore) Retry(ctx context.Context, d *Dispatcher) (int, error) {
	records, err := s.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	var (
		replayed int
		errs     []error
	)
	for _, rec := range records {
		if err := d.Push(ctx, rec.Envelope(s.now())); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.db.WithContext(ctx).Delete(&FailedJobRecord{}, rec.ID).Error; err != nil {
			errs = append(errs, fmt.Errorf("queue: forget failed job %d: %w", rec.ID, err))
			continue
		}
		replayed++
	}
	return replayed, errors.Join(errs...)
}

// Flush deletes every recorded failure.
func (s *FailedJobStore) Flush(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&FailedJobRecord{})
	return res.RowsAffected, res.Error
}
