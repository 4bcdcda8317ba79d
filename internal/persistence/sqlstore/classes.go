package sqlstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/example/campus-yoga/internal/persistence"
)

var _ persistence.ClassRepository = (*Store)(nil)

const insertClassSQL = `
	INSERT INTO yoga_classes (` + classColumns + `)
	VALUES (:id, :series_id, :class_name, :description, :instructor, :building_id, :room_number,
		:mats_provided, :start_time, :end_time, :is_cancelled, :current_enrollment, :created_at, :updated_at)`

// insertGeneratedClassSQL skips an instance whose series already has a class at that start.
const insertGeneratedClassSQL = insertClassSQL + `
	ON CONFLICT (series_id, start_time) DO NOTHING`

func (s *Store) classRowForInsert(class persistence.ClassInstance) classRow {
	row := newClassRow(class)
	if class.CreatedAt.IsZero() {
		row.CreatedAt = s.stamp()
	}
	if class.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

// CreateClass stores a single class instance.
func (s *Store) CreateClass(ctx context.Context, class persistence.ClassInstance) error {
	if _, err := s.db.NamedExecContext(ctx, insertClassSQL, s.classRowForInsert(class)); err != nil {
		return fmt.Errorf("insert class %s: %w", class.ID, mapError(err))
	}
	return nil
}

// GetClass loads a class instance by id.
func (s *Store) GetClass(ctx context.Context, id string) (persistence.ClassInstance, error) {
	var row classRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+classColumns+` FROM yoga_classes WHERE id = ?`), id)
	if err != nil {
		return persistence.ClassInstance{}, fmt.Errorf("get class %s: %w", id, mapError(err))
	}
	class, err := row.model()
	if err != nil {
		return persistence.ClassInstance{}, fmt.Errorf("decode class %s: %w", id, err)
	}
	return class, nil
}

// UpdateClass replaces the editable fields of a class. Enrollment is owned by registrations
// and is not written here.
func (s *Store) UpdateClass(ctx context.Context, class persistence.ClassInstance) error {
	row := newClassRow(class)
	row.UpdatedAt = s.stamp()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE yoga_classes SET
			series_id = :series_id,
			class_name = :class_name,
			description = :description,
			instructor = :instructor,
			building_id = :building_id,
			room_number = :room_number,
			mats_provided = :mats_provided,
			start_time = :start_time,
			end_time = :end_time,
			is_cancelled = :is_cancelled,
			updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("update class %s: %w", class.ID, mapError(err))
	}
	return requireAffected(result, "update class "+class.ID)
}

// DeleteClass removes a class and its registrations.
func (s *Store) DeleteClass(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM class_attendance WHERE class_id = ?`), id); err != nil {
			return fmt.Errorf("delete registrations of class %s: %w", id, mapError(err))
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM yoga_classes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete class %s: %w", id, mapError(err))
		}
		return requireAffected(result, "delete class "+id)
	})
}

// ListClasses returns matching instances ordered by start time. Rows with unreadable or
// inverted times are logged and skipped.
func (s *Store) ListClasses(ctx context.Context, filter persistence.ClassFilter) ([]persistence.ClassInstance, error) {
	query := s.builder.Select(classColumns).From("yoga_classes")
	if len(filter.IDs) > 0 {
		query = query.Where(sq.Eq{"id": filter.IDs})
	}
	if filter.SeriesID != "" {
		query = query.Where(sq.Eq{"series_id": filter.SeriesID})
	}
	if filter.BuildingID != "" {
		query = query.Where(sq.Eq{"building_id": filter.BuildingID})
	}
	if filter.Room != "" {
		query = query.Where(sq.Eq{"room_number": filter.Room})
	}
	if filter.StartsFrom != nil {
		query = query.Where(sq.GtOrEq{"start_time": formatTime(*filter.StartsFrom)})
	}
	if filter.StartsBefore != nil {
		query = query.Where(sq.Lt{"start_time": formatTime(*filter.StartsBefore)})
	}
	if filter.ExcludeCancelled {
		query = query.Where(sq.Eq{"is_cancelled": false})
	}

	stmt, args, err := query.OrderBy("start_time ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build class query: %w", err)
	}

	var rows []classRow
	if err := s.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", mapError(err))
	}

	classes := make([]persistence.ClassInstance, 0, len(rows))
	for _, row := range rows {
		class, err := row.model()
		if err != nil {
			s.log(ctx).Warn("skipping malformed class row", "class_id", row.ID, "error", err)
			continue
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// BulkInsertInstances stores classes atomically: either all rows are written or none. A class
// whose series already holds an instance at the same start is skipped and not counted.
func (s *Store) BulkInsertInstances(ctx context.Context, classes []persistence.ClassInstance) (int, error) {
	if len(classes) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, insertGeneratedClassSQL)
		if err != nil {
			return fmt.Errorf("prepare class insert: %w", err)
		}
		defer stmt.Close()

		for _, class := range classes {
			res, err := stmt.ExecContext(ctx, s.classRowForInsert(class))
			if err != nil {
				return fmt.Errorf("insert class %s: %w", class.ID, mapError(err))
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("insert class %s: %w", class.ID, err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// UpdateSeriesInstances applies patch to every instance of the series starting at or after from.
func (s *Store) UpdateSeriesInstances(ctx context.Context, seriesID string, patch persistence.InstancePatch, from time.Time) (int, error) {
	if patch.IsEmpty() {
		return 0, nil
	}

	update := s.builder.Update("yoga_classes")
	if patch.ClassName != nil {
		update = update.Set("class_name", *patch.ClassName)
	}
	if patch.Description != nil {
		update = update.Set("description", *patch.Description)
	}
	if patch.InstructorName != nil {
		update = update.Set("instructor", *patch.InstructorName)
	}
	if patch.BuildingID != nil {
		update = update.Set("building_id", *patch.BuildingID)
	}
	if patch.Room != nil {
		update = update.Set("room_number", *patch.Room)
	}
	if patch.MatsProvided != nil {
		update = update.Set("mats_provided", *patch.MatsProvided)
	}

	return s.execSeriesUpdate(ctx, update, seriesID, from, "update instances of series "+seriesID)
}

// SetSeriesInstancesCancelled flips the cancelled flag of every instance of the series
// starting at or after from.
func (s *Store) SetSeriesInstancesCancelled(ctx context.Context, seriesID string, cancelled bool, from time.Time) (int, error) {
	update := s.builder.Update("yoga_classes").Set("is_cancelled", cancelled)
	return s.execSeriesUpdate(ctx, update, seriesID, from, "cancel instances of series "+seriesID)
}

func (s *Store) execSeriesUpdate(ctx context.Context, update sq.UpdateBuilder, seriesID string, from time.Time, op string) (int, error) {
	stmt, args, err := update.
		Set("updated_at", s.stamp()).
		Where(sq.Eq{"series_id": seriesID}).
		Where(sq.GtOrEq{"start_time": formatTime(from)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: build: %w", op, err)
	}

	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return int(n), nil
}

// DeleteInstancesForSeries removes every instance of the series starting at or after from,
// together with their registrations.
func (s *Store) DeleteInstancesForSeries(ctx context.Context, seriesID string, from time.Time) (int, error) {
	cutoff := formatTime(from)
	deleted := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM class_attendance WHERE class_id IN (
				SELECT id FROM yoga_classes WHERE series_id = ? AND start_time >= ?
			)`), seriesID, cutoff); err != nil {
			return fmt.Errorf("delete registrations of series %s: %w", seriesID, mapError(err))
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM yoga_classes WHERE series_id = ? AND start_time >= ?`), seriesID, cutoff)
		if err != nil {
			return fmt.Errorf("delete instances of series %s: %w", seriesID, mapError(err))
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete instances of series %s: rows affected: %w", seriesID, err)
		}
		deleted = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
