package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/keepsake/internal/payload"
)

// InsertGoal inserts a goal with its schedule, questions and data points.
// Every identifier is stored as given; nothing is regenerated.
//
// A goal whose id is already live fails with a UNIQUE constraint error.
func (t *Tx) InsertGoal(ctx context.Context, g payload.Goal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO goals
		(id, title, description, category, custom_category, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.ID,
		g.Title,
		g.Description,
		string(g.Category),
		g.CustomCategory,
		g.IsActive,
		formatTime(g.CreatedAt),
		formatTime(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert goal %s: %w", g.ID, err)
	}

	if err := t.insertSchedule(ctx, g.ID, g.Schedule); err != nil {
		return err
	}
	for _, q := range g.Questions {
		if err := t.insertQuestion(ctx, g.ID, q); err != nil {
			return err
		}
	}
	for _, dp := range g.DataPoints {
		if err := t.insertDataPoint(ctx, dp); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) insertSchedule(ctx context.Context, goalID string, s payload.Schedule) error {
	times := s.Times
	if times == nil {
		times = []payload.TimeOfDay{}
	}
	timesJSON, err := json.Marshal(times)
	if err != nil {
		return fmt.Errorf("insert schedule %s: %w", goalID, err)
	}

	var selectedDays sql.NullString
	if s.SelectedDays != nil {
		data, err := json.Marshal(s.SelectedDays)
		if err != nil {
			return fmt.Errorf("insert schedule %s: %w", goalID, err)
		}
		selectedDays = sql.NullString{String: string(data), Valid: true}
	}

	var endDate sql.NullString
	if s.EndDate != nil {
		endDate = sql.NullString{String: formatTime(*s.EndDate), Valid: true}
	}

	var intervalDays sql.NullInt64
	if s.IntervalDays != nil {
		intervalDays = sql.NullInt64{Int64: int64(*s.IntervalDays), Valid: true}
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO schedules
		(goal_id, start_date, frequency, times, end_date, timezone, selected_days, interval_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		goalID,
		formatTime(s.StartDate),
		string(s.Frequency),
		string(timesJSON),
		endDate,
		s.TimeZone,
		selectedDays,
		intervalDays,
	)
	if err != nil {
		return fmt.Errorf("insert schedule %s: %w", goalID, err)
	}
	return nil
}

func (t *Tx) insertQuestion(ctx context.Context, goalID string, q payload.Question) error {
	var options sql.NullString
	if q.Options != nil {
		data, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
		options = sql.NullString{String: string(data), Valid: true}
	}

	var validation sql.NullString
	if q.Validation != nil {
		data, err := json.Marshal(q.Validation)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
		validation = sql.NullString{String: string(data), Valid: true}
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO questions
		(id, goal_id, text, response_type, is_active, options, validation)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		q.ID,
		goalID,
		q.Text,
		string(q.Type),
		q.IsActive,
		options,
		validation,
	)
	if err != nil {
		return fmt.Errorf("insert question %s: %w", q.ID, err)
	}
	return nil
}

func (t *Tx) insertDataPoint(ctx context.Context, dp payload.DataPoint) error {
	kind, data, err := payload.EncodeValue(dp.Value)
	if err != nil {
		return fmt.Errorf("insert data point %s: %w", dp.ID, err)
	}

	var value sql.NullString
	if data != nil {
		value = sql.NullString{String: string(data), Valid: true}
	}

	var questionID sql.NullString
	if dp.QuestionID != "" {
		questionID = sql.NullString{String: dp.QuestionID, Valid: true}
	}

	var mood sql.NullInt64
	if dp.Mood != nil {
		mood = sql.NullInt64{Int64: int64(*dp.Mood), Valid: true}
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO data_points
		(id, goal_id, question_id, timestamp, value_type, value, mood, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		dp.ID,
		dp.GoalID,
		questionID,
		formatTime(dp.Timestamp),
		kind,
		value,
		mood,
		dp.Location,
	)
	if err != nil {
		return fmt.Errorf("insert data point %s: %w", dp.ID, err)
	}
	return nil
}

// ListGoals returns every live goal with its full subtree, oldest first.
// Returns an empty (non-nil) slice for an empty store.
func (t *Tx) ListGoals(ctx context.Context) ([]payload.Goal, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, title, description, category, custom_category, is_active, created_at, updated_at
		FROM goals
		ORDER BY created_at ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	goals := []payload.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list goals: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list goals: %w", err)
	}
	rows.Close()

	for i := range goals {
		if err := t.loadSubtree(ctx, &goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// GetGoal returns one live goal with its full subtree.
// Returns an error wrapping sql.ErrNoRows if the goal does not exist.
func (t *Tx) GetGoal(ctx context.Context, id string) (payload.Goal, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, title, description, category, custom_category, is_active, created_at, updated_at
		FROM goals
		WHERE id = ?
	`, id)
	g, err := scanGoal(row)
	if err != nil {
		return payload.Goal{}, fmt.Errorf("get goal %s: %w", id, err)
	}
	if err := t.loadSubtree(ctx, &g); err != nil {
		return payload.Goal{}, err
	}
	return g, nil
}

// ListGoalIDs returns the ids of every live goal, oldest first.
func (t *Tx) ListGoalIDs(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id FROM goals ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list goal ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list goal ids: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goal ids: %w", err)
	}
	return ids, nil
}

// GoalExists reports whether a live goal with the given id exists.
func (t *Tx) GoalExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("goal exists %s: %w", id, err)
	}
	return n > 0, nil
}

// DeleteGoal deletes a goal; its schedule, questions and data points go with
// it. Reports whether a goal was deleted.
func (t *Tx) DeleteGoal(ctx context.Context, id string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete goal %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete goal %s: %w", id, err)
	}
	return n > 0, nil
}

// DeleteAllGoals deletes every live goal and its subtree. Trash items are
// untouched. Returns the number of goals deleted.
func (t *Tx) DeleteAllGoals(ctx context.Context) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM goals`)
	if err != nil {
		return 0, fmt.Errorf("delete all goals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all goals: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (payload.Goal, error) {
	var (
		g                    payload.Goal
		category             string
		createdAt, updatedAt string
	)
	if err := row.Scan(&g.ID, &g.Title, &g.Description, &category, &g.CustomCategory,
		&g.IsActive, &createdAt, &updatedAt); err != nil {
		return payload.Goal{}, err
	}
	g.Category = payload.Category(category)

	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return payload.Goal{}, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return payload.Goal{}, err
	}
	return g, nil
}

// loadSubtree fills in the schedule, questions and data points of g.
func (t *Tx) loadSubtree(ctx context.Context, g *payload.Goal) error {
	s, err := t.readSchedule(ctx, g.ID)
	if err != nil {
		return err
	}
	g.Schedule = s

	if g.Questions, err = t.readQuestions(ctx, g.ID); err != nil {
		return err
	}
	if g.DataPoints, err = t.readDataPoints(ctx, g.ID); err != nil {
		return err
	}
	return nil
}

func (t *Tx) readSchedule(ctx context.Context, goalID string) (payload.Schedule, error) {
	var (
		s                     payload.Schedule
		startDate, frequency  string
		timesJSON             string
		endDate, selectedDays sql.NullString
		intervalDays          sql.NullInt64
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT start_date, frequency, times, end_date, timezone, selected_days, interval_days
		FROM schedules
		WHERE goal_id = ?
	`, goalID).Scan(&startDate, &frequency, &timesJSON, &endDate, &s.TimeZone, &selectedDays, &intervalDays)
	if err != nil {
		return payload.Schedule{}, fmt.Errorf("read schedule %s: %w", goalID, err)
	}

	if s.StartDate, err = parseTime(startDate); err != nil {
		return payload.Schedule{}, fmt.Errorf("read schedule %s: %w", goalID, err)
	}
	s.Frequency = payload.Frequency(frequency)
	if err := json.Unmarshal([]byte(timesJSON), &s.Times); err != nil {
		return payload.Schedule{}, fmt.Errorf("read schedule %s: times: %w", goalID, err)
	}
	if s.Times == nil {
		s.Times = []payload.TimeOfDay{}
	}
	if endDate.Valid {
		end, err := parseTime(endDate.String)
		if err != nil {
			return payload.Schedule{}, fmt.Errorf("read schedule %s: %w", goalID, err)
		}
		s.EndDate = &end
	}
	if selectedDays.Valid {
		var days []time.Weekday
		if err := json.Unmarshal([]byte(selectedDays.String), &days); err != nil {
			return payload.Schedule{}, fmt.Errorf("read schedule %s: selected days: %w", goalID, err)
		}
		s.SelectedDays = days
	}
	if intervalDays.Valid {
		n := int(intervalDays.Int64)
		s.IntervalDays = &n
	}
	return s, nil
}

func (t *Tx) readQuestions(ctx context.Context, goalID string) ([]payload.Question, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, text, response_type, is_active, options, validation
		FROM questions
		WHERE goal_id = ?
		ORDER BY seq ASC
	`, goalID)
	if err != nil {
		return nil, fmt.Errorf("read questions %s: %w", goalID, err)
	}
	defer rows.Close()

	questions := []payload.Question{}
	for rows.Next() {
		var (
			q                   payload.Question
			responseType        string
			options, validation sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.Text, &responseType, &q.IsActive, &options, &validation); err != nil {
			return nil, fmt.Errorf("read questions %s: %w", goalID, err)
		}
		q.Type = payload.ResponseType(responseType)
		if options.Valid {
			if err := json.Unmarshal([]byte(options.String), &q.Options); err != nil {
				return nil, fmt.Errorf("read question %s: options: %w", q.ID, err)
			}
		}
		if validation.Valid {
			var rule payload.ValidationRule
			if err := json.Unmarshal([]byte(validation.String), &rule); err != nil {
				return nil, fmt.Errorf("read question %s: validation: %w", q.ID, err)
			}
			q.Validation = &rule
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions %s: %w", goalID, err)
	}
	return questions, nil
}

func (t *Tx) readDataPoints(ctx context.Context, goalID string) ([]payload.DataPoint, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, goal_id, question_id, timestamp, value_type, value, mood, location
		FROM data_points
		WHERE goal_id = ?
		ORDER BY timestamp ASC, seq ASC
	`, goalID)
	if err != nil {
		return nil, fmt.Errorf("read data points %s: %w", goalID, err)
	}
	defer rows.Close()

	points := []payload.DataPoint{}
	for rows.Next() {
		var (
			dp                payload.DataPoint
			questionID, value sql.NullString
			timestamp, kind   string
			mood              sql.NullInt64
		)
		if err := rows.Scan(&dp.ID, &dp.GoalID, &questionID, &timestamp, &kind, &value, &mood, &dp.Location); err != nil {
			return nil, fmt.Errorf("read data points %s: %w", goalID, err)
		}
		dp.QuestionID = questionID.String
		if dp.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, fmt.Errorf("read data point %s: %w", dp.ID, err)
		}

		var raw []byte
		if value.Valid {
			raw = []byte(value.String)
		}
		if dp.Value, err = payload.DecodeValue(kind, raw); err != nil {
			return nil, fmt.Errorf("read data point %s: %w", dp.ID, err)
		}
		if mood.Valid {
			m := int(mood.Int64)
			dp.Mood = &m
		}
		points = append(points, dp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read data points %s: %w", goalID, err)
	}
	return points, nil
}
