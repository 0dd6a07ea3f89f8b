// Package db holds the submission journal, every code the service hands
// to the portal is recorded with its outcome.
package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Submission struct {
	ID        int64
	Username  string
	Activity  string
	Code      string
	Success   bool
	Message   string
	CreatedAt int64
}

const insertSubmission = `INSERT INTO Submission (username, activity, code, success, message, createdAt)
VALUES (?, ?, ?, ?, ?, ?)`

type InsertSubmissionParams struct {
	Username  string
	Activity  string
	Code      string
	Success   bool
	Message   string
	CreatedAt int64
}

func (q *Queries) InsertSubmission(ctx context.Context, arg InsertSubmissionParams) error {
	_, err := q.db.ExecContext(
		ctx, insertSubmission,
		arg.Username,
		arg.Activity,
		arg.Code,
		arg.Success,
		arg.Message,
		arg.CreatedAt,
	)
	return err
}

const listSubmissions = `SELECT id, username, activity, code, success, message, createdAt FROM Submission
WHERE username = ?
ORDER BY createdAt DESC, id DESC
LIMIT ?`

type ListSubmissionsParams struct {
	Username string
	Limit    int64
}

func (q *Queries) ListSubmissions(ctx context.Context, arg ListSubmissionsParams) ([]Submission, error) {
	rows, err := q.db.QueryContext(ctx, listSubmissions, arg.Username, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Submission
	for rows.Next() {
		var i Submission
		err := rows.Scan(
			&i.ID,
			&i.Username,
			&i.Activity,
			&i.Code,
			&i.Success,
			&i.Message,
			&i.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSubmissionsBefore = `DELETE FROM Submission WHERE createdAt < ?`

func (q *Queries) DeleteSubmissionsBefore(ctx context.Context, createdAt int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSubmissionsBefore, createdAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
