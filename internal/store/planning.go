package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Calendar events

func (s *PostgresStore) CreateCalendarEvent(ev *CalendarEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO calendar_events (id, trip_id, title, location, starts_at, ends_at, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.TripID, ev.Title, ev.Location, ev.StartsAt, ev.EndsAt, ev.CreatedBy, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert calendar event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCalendarEvents(tripID string) ([]CalendarEvent, error) {
	events := []CalendarEvent{}
	err := s.db.Select(&events,
		"SELECT * FROM calendar_events WHERE trip_id = $1 ORDER BY starts_at", tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	return events, nil
}

// Tasks

func (s *PostgresStore) CreateTask(t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, trip_id, title, assigned_to, due_at, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.TripID, t.Title, t.AssignedTo, t.DueAt, t.CreatedBy, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetTaskDone(tripID, taskID string, done bool) error {
	res, err := s.db.Exec(
		"UPDATE tasks SET done = $1 WHERE id = $2 AND trip_id = $3", done, taskID, tripID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s not found", taskID)
	}
	return nil
}

func (s *PostgresStore) ListTasks(tripID string) ([]Task, error) {
	tasks := []Task{}
	err := s.db.Select(&tasks,
		"SELECT * FROM tasks WHERE trip_id = $1 ORDER BY created_at", tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Polls

func (s *PostgresStore) CreatePoll(p *Poll, optionLabels []string) ([]PollOption, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO polls (id, trip_id, question, created_by, created_at) VALUES ($1, $2, $3, $4, $5)",
		p.ID, p.TripID, p.Question, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert poll: %w", err)
	}

	options := make([]PollOption, 0, len(optionLabels))
	for _, label := range optionLabels {
		opt := PollOption{ID: uuid.NewString(), PollID: p.ID, Label: label}
		if _, err := tx.Exec(
			"INSERT INTO poll_options (id, poll_id, label) VALUES ($1, $2, $3)",
			opt.ID, opt.PollID, opt.Label); err != nil {
			return nil, fmt.Errorf("failed to insert poll option: %w", err)
		}
		options = append(options, opt)
	}
	return options, tx.Commit()
}

// Vote upserts: a member changing their mind replaces their previous vote.
func (s *PostgresStore) Vote(pollID, optionID, userID string) error {
	_, err := s.db.Exec(
		`INSERT INTO poll_votes (poll_id, option_id, user_id) VALUES ($1, $2, $3)
		 ON CONFLICT (poll_id, user_id) DO UPDATE SET option_id = EXCLUDED.option_id`,
		pollID, optionID, userID)
	if err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPolls(tripID string) ([]Poll, error) {
	polls := []Poll{}
	err := s.db.Select(&polls, "SELECT * FROM polls WHERE trip_id = $1 ORDER BY created_at", tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	return polls, nil
}

func (s *PostgresStore) ListPollOptions(pollID string) ([]PollOption, error) {
	options := []PollOption{}
	err := s.db.Select(&options,
		`SELECT o.id, o.poll_id, o.label, COUNT(v.user_id) AS votes
		 FROM poll_options o
		 LEFT JOIN poll_votes v ON v.option_id = o.id
		 WHERE o.poll_id = $1
		 GROUP BY o.id, o.poll_id, o.label
		 ORDER BY o.id`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list poll options: %w", err)
	}
	return options, nil
}

// Payment splits

func (s *PostgresStore) CreatePaymentSplit(ps *PaymentSplit) error {
	if ps.ID == "" {
		ps.ID = uuid.NewString()
	}
	if ps.Currency == "" {
		ps.Currency = "USD"
	}
	ps.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO payment_splits (id, trip_id, paid_by, amount_cents, currency, description, participants, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ps.ID, ps.TripID, ps.PaidBy, ps.AmountCents, ps.Currency, ps.Description, ps.Participants, ps.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment split: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPaymentSplits(tripID string) ([]PaymentSplit, error) {
	splits := []PaymentSplit{}
	err := s.db.Select(&splits,
		"SELECT * FROM payment_splits WHERE trip_id = $1 ORDER BY created_at", tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment splits: %w", err)
	}
	return splits, nil
}
