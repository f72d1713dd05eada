package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lox/clearyfi/internal/models"
)

var ErrSubscriberNotFound = errors.New("subscriber not found")

const subscriberColumns = `user_id, chat_id, username, city, is_active, notification_time,
	timezone_offset, created_at, updated_at`

// UpsertSubscriber registers a user. An existing subscriber keeps their city,
// schedule and subscription state; only the chat and username are refreshed.
func (s *Store) UpsertSubscriber(sub models.Subscriber) error {
	now := time.Now().UTC()
	if sub.NotificationTime == "" {
		sub.NotificationTime = "08:00"
	}
	_, err := s.db.Exec(`
		INSERT INTO subscribers (user_id, chat_id, username, city, is_active, notification_time,
			timezone_offset, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			username = excluded.username,
			updated_at = excluded.updated_at
	`, sub.UserID, sub.ChatID, sub.Username, sub.City, sub.IsActive, sub.NotificationTime,
		sub.TimezoneOffset, now, now)
	return err
}

func (s *Store) GetSubscriber(userID int64) (*models.Subscriber, error) {
	row := s.db.QueryRow(`SELECT `+subscriberColumns+` FROM subscribers WHERE user_id = ?`, userID)
	sub, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Store) SetCity(userID int64, city string) error {
	return s.updateSubscriber(`UPDATE subscribers SET city = ?, updated_at = ? WHERE user_id = ?`,
		city, time.Now().UTC(), userID)
}

func (s *Store) SetSubscription(userID int64, active bool) error {
	return s.updateSubscriber(`UPDATE subscribers SET is_active = ?, updated_at = ? WHERE user_id = ?`,
		active, time.Now().UTC(), userID)
}

// SetNotificationTime stores hhmm, which the caller has already validated.
func (s *Store) SetNotificationTime(userID int64, hhmm string) error {
	return s.updateSubscriber(`UPDATE subscribers SET notification_time = ?, updated_at = ? WHERE user_id = ?`,
		hhmm, time.Now().UTC(), userID)
}

func (s *Store) updateSubscriber(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

func (s *Store) ActiveSubscribers() ([]models.Subscriber, error) {
	rows, err := s.db.Query(`SELECT ` + subscriberColumns + ` FROM subscribers WHERE is_active = TRUE ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := row.Scan(&sub.UserID, &sub.ChatID, &sub.Username, &sub.City, &sub.IsActive,
		&sub.NotificationTime, &sub.TimezoneOffset, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// MarkNotified records that the daily message for localDate went out. It
// returns false when the subscriber was already notified for that date.
func (s *Store) MarkNotified(userID int64, localDate string) (bool, error) {
	result, err := s.db.Exec(`
		INSERT INTO notification_log (user_id, local_date, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, local_date) DO NOTHING
	`, userID, localDate, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UnmarkNotified releases a claim so a failed send can be retried inside the
// same window.
func (s *Store) UnmarkNotified(userID int64, localDate string) error {
	_, err := s.db.Exec(`DELETE FROM notification_log WHERE user_id = ? AND local_date = ?`, userID, localDate)
	return err
}

// CleanupNotificationLog drops entries older than retentionDays.
func (s *Store) CleanupNotificationLog(retentionDays int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM notification_log
		WHERE local_date < DATE('now', '-' || ? || ' days')
	`, retentionDays)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SubscriberCities returns the distinct cities of active subscribers.
func (s *Store) SubscriberCities() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT city FROM subscribers WHERE is_active = TRUE ORDER BY city`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}
