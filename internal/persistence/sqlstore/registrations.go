package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/campus-yoga/internal/persistence"
)

var _ persistence.RegistrationRepository = (*Store)(nil)

// CreateRegistration records the sign-up and increments the class enrollment in one transaction.
func (s *Store) CreateRegistration(ctx context.Context, registration persistence.Registration) error {
	row := registrationRow{
		ID:           registration.ID,
		UserID:       registration.UserID,
		ClassID:      registration.ClassID,
		RegisteredAt: formatTime(registration.RegisteredAt),
		Attended:     registration.Attended,
	}
	if registration.RegisteredAt.IsZero() {
		row.RegisteredAt = s.stamp()
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO class_attendance (id, user_id, class_id, registered_at, attended)
			VALUES (:id, :user_id, :class_id, :registered_at, :attended)`, row); err != nil {
			return fmt.Errorf("insert registration %s/%s: %w", row.UserID, row.ClassID, mapError(err))
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE yoga_classes SET current_enrollment = current_enrollment + 1 WHERE id = ?`), row.ClassID)
		if err != nil {
			return fmt.Errorf("increment enrollment of class %s: %w", row.ClassID, mapError(err))
		}
		return requireAffected(result, "increment enrollment of class "+row.ClassID)
	})
}

// DeleteRegistration removes the sign-up and decrements the class enrollment, never below zero.
func (s *Store) DeleteRegistration(ctx context.Context, userID, classID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM class_attendance WHERE user_id = ? AND class_id = ?`), userID, classID)
		if err != nil {
			return fmt.Errorf("delete registration %s/%s: %w", userID, classID, mapError(err))
		}
		if err := requireAffected(result, "delete registration "+userID+"/"+classID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE yoga_classes SET current_enrollment = current_enrollment - 1
			WHERE id = ? AND current_enrollment > 0`), classID); err != nil {
			return fmt.Errorf("decrement enrollment of class %s: %w", classID, mapError(err))
		}
		return nil
	})
}

// GetRegistration loads the sign-up of userID for classID.
func (s *Store) GetRegistration(ctx context.Context, userID, classID string) (persistence.Registration, error) {
	var row registrationRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, user_id, class_id, registered_at, attended
		FROM class_attendance WHERE user_id = ? AND class_id = ?`), userID, classID)
	if err != nil {
		return persistence.Registration{}, fmt.Errorf("get registration %s/%s: %w", userID, classID, mapError(err))
	}
	registration, err := row.model()
	if err != nil {
		return persistence.Registration{}, fmt.Errorf("decode registration %s: %w", row.ID, err)
	}
	return registration, nil
}

// ListRegistrationsForUser returns every sign-up of the user, oldest first.
func (s *Store) ListRegistrationsForUser(ctx context.Context, userID string) ([]persistence.Registration, error) {
	var rows []registrationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, user_id, class_id, registered_at, attended
		FROM class_attendance WHERE user_id = ?
		ORDER BY registered_at ASC, id ASC`), userID); err != nil {
		return nil, fmt.Errorf("list registrations for %s: %w", userID, mapError(err))
	}

	registrations := make([]persistence.Registration, 0, len(rows))
	for _, row := range rows {
		registration, err := row.model()
		if err != nil {
			s.log(ctx).Warn("skipping malformed registration row", "registration_id", row.ID, "error", err)
			continue
		}
		registrations = append(registrations, registration)
	}
	return registrations, nil
}
