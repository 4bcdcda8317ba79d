package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/example/campus-yoga/internal/persistence"
)

var _ persistence.SeriesRepository = (*Store)(nil)

// InsertSeries stores a new series template.
func (s *Store) InsertSeries(ctx context.Context, series persistence.ClassSeries) error {
	row := newSeriesRow(series)
	if series.CreatedAt.IsZero() {
		row.CreatedAt = s.stamp()
	}
	if series.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO class_series (`+seriesColumns+`)
		VALUES (:id, :series_name, :description, :instructor, :building_id, :room_number, :mats_provided,
			:recurrence_pattern, :recurrence_days, :start_time, :end_time, :series_start_date, :series_end_date,
			:generated_through, :is_active, :created_at, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("insert series %s: %w", series.ID, mapError(err))
	}
	return nil
}

// GetSeries loads a series by id.
func (s *Store) GetSeries(ctx context.Context, id string) (persistence.ClassSeries, error) {
	var row seriesRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+seriesColumns+` FROM class_series WHERE id = ?`), id)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("get series %s: %w", id, mapError(err))
	}
	series, err := row.model()
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("decode series %s: %w", id, err)
	}
	return series, nil
}

// UpdateSeries replaces the stored template. created_at is preserved.
func (s *Store) UpdateSeries(ctx context.Context, series persistence.ClassSeries) error {
	row := newSeriesRow(series)
	row.UpdatedAt = s.stamp()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE class_series SET
			series_name = :series_name,
			description = :description,
			instructor = :instructor,
			building_id = :building_id,
			room_number = :room_number,
			mats_provided = :mats_provided,
			recurrence_pattern = :recurrence_pattern,
			recurrence_days = :recurrence_days,
			start_time = :start_time,
			end_time = :end_time,
			series_start_date = :series_start_date,
			series_end_date = :series_end_date,
			generated_through = :generated_through,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("update series %s: %w", series.ID, mapError(err))
	}
	return requireAffected(result, "update series "+series.ID)
}

// DeleteSeries removes the template and detaches any instances that referenced it.
func (s *Store) DeleteSeries(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE yoga_classes SET series_id = NULL, updated_at = ? WHERE series_id = ?`), s.stamp(), id); err != nil {
			return fmt.Errorf("detach instances of series %s: %w", id, mapError(err))
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM class_series WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete series %s: %w", id, mapError(err))
		}
		return requireAffected(result, "delete series "+id)
	})
}

// ListSeries returns series ordered by start date. Rows that fail to decode are logged and skipped.
func (s *Store) ListSeries(ctx context.Context, filter persistence.SeriesFilter) ([]persistence.ClassSeries, error) {
	query := s.builder.Select(seriesColumns).From("class_series")
	if filter.ActiveOnly {
		query = query.Where(sq.Eq{"is_active": true})
	}
	if filter.OpenEndedOnly {
		query = query.Where(sq.Eq{"series_end_date": nil})
	}
	stmt, args, err := query.OrderBy("series_start_date ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build series query: %w", err)
	}

	var rows []seriesRow
	if err := s.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("list series: %w", mapError(err))
	}

	series := make([]persistence.ClassSeries, 0, len(rows))
	for _, row := range rows {
		model, err := row.model()
		if err != nil {
			s.log(ctx).Warn("skipping malformed series row", "series_id", row.ID, "error", err)
			continue
		}
		series = append(series, model)
	}
	return series, nil
}
