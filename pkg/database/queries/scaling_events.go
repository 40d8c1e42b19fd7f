package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

type ScalingEventRepository struct {
	db *sql.DB
}

func NewScalingEventRepository(db *sql.DB) *ScalingEventRepository {
	return &ScalingEventRepository{db: db}
}

const scalingEventColumns = `id, service_id, timestamp, action, count_before, count_after,
			   trigger_reason, status, COALESCE(error, '')`

func (r *ScalingEventRepository) GetByService(ctx context.Context, serviceID string, from, to time.Time, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + scalingEventColumns + `
		FROM scaling_events
		WHERE service_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, serviceID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScalingEvents(rows)
}

func (r *ScalingEventRepository) GetRecent(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + scalingEventColumns + `
		FROM scaling_events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScalingEvents(rows)
}

func scanScalingEvents(rows *sql.Rows) ([]models.ScalingEvent, error) {
	var events []models.ScalingEvent
	for rows.Next() {
		var e models.ScalingEvent
		err := rows.Scan(
			&e.ID, &e.ServiceID, &e.Timestamp, &e.Action,
			&e.CountBefore, &e.CountAfter, &e.TriggerReason,
			&e.Status, &e.Error,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *ScalingEventRepository) GetStats(ctx context.Context, serviceID string, from, to time.Time) (*ScalingStats, error) {
	query := `
		SELECT 
			COUNT(*) FILTER (WHERE action = 'SCALE_UP') AS scale_up_count,
			COUNT(*) FILTER (WHERE action = 'SCALE_DOWN') AS scale_down_count,
			COUNT(*) FILTER (WHERE action = 'SCALE_TO_ZERO') AS scale_to_zero_count,
			COUNT(*) FILTER (WHERE action = 'SCALE_FROM_ZERO') AS scale_from_zero_count,
			COUNT(*) FILTER (WHERE status = 'success') AS success_count,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed_count
		FROM scaling_events
		WHERE service_id = $1 AND timestamp >= $2 AND timestamp <= $3`

	var stats ScalingStats
	err := r.db.QueryRowContext(ctx, query, serviceID, from, to).Scan(
		&stats.ScaleUpCount, &stats.ScaleDownCount,
		&stats.ScaleToZeroCount, &stats.ScaleFromZeroCount,
		&stats.SuccessCount, &stats.FailedCount,
	)
	if err != nil {
		return nil, err
	}

	stats.ServiceID = serviceID
	stats.From = from
	stats.To = to

	return &stats, nil
}

func (r *ScalingEventRepository) Insert(ctx context.Context, event *models.ScalingEvent) error {
	query := `
		INSERT INTO scaling_events 
			(service_id, timestamp, action, count_before, count_after, trigger_reason, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		event.ServiceID,
		event.Timestamp,
		event.Action,
		event.CountBefore,
		event.CountAfter,
		event.TriggerReason,
		event.Status,
		event.Error,
	).Scan(&event.ID)
}

type ScalingStats struct {
	ServiceID          string    `json:"service_id"`
	From               time.Time `json:"from"`
	To                 time.Time `json:"to"`
	ScaleUpCount       int       `json:"scale_up_count"`
	ScaleDownCount     int       `json:"scale_down_count"`
	ScaleToZeroCount   int       `json:"scale_to_zero_count"`
	ScaleFromZeroCount int       `json:"scale_from_zero_count"`
	SuccessCount       int       `json:"success_count"`
	FailedCount        int       `json:"failed_count"`
}
