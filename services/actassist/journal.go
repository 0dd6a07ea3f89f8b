package actassist

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"actassist-backend/lib/chrono"
	"actassist-backend/lib/portal"
	"actassist-backend/services/actassist/db"
)

const (
	defaultSubmissionLimit = 20
	maxSubmissionLimit     = 200
)

type submissionEntry struct {
	Activity  string    `json:"activity_value"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type submissionsResponse struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	Submissions []submissionEntry `json:"submissions"`
}

// recordSubmission stores the outcome of a submission, a failing journal
// never fails the submission itself.
func (s *Service) recordSubmission(ctx context.Context, cred portal.Credential, req submitRequest, result portal.Result) {
	if s.journal == nil {
		return
	}
	err := s.journal.InsertSubmission(ctx, db.InsertSubmissionParams{
		Username:  cred.Username,
		Activity:  req.ActivityValue,
		Code:      req.Code,
		Success:   result.Success,
		Message:   result.Message,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		s.tel.ReportBroken(report_journal, err)
	}
}

func submissionLimit(r *http.Request) int64 {
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit <= 0 {
		return defaultSubmissionLimit
	}
	return min(limit, maxSubmissionLimit)
}

func (s *Service) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleSubmissions")
	defer span.End()

	cred, ok := s.credential(r)
	if !ok {
		s.writeJSON(w, http.StatusOK, submissionsResponse{
			Success:     false,
			Message:     portal.MessageNotLoggedIn,
			Submissions: []submissionEntry{},
		})
		return
	}

	entries := []submissionEntry{}
	if s.journal != nil {
		rows, err := s.journal.ListSubmissions(ctx, db.ListSubmissionsParams{
			Username: cred.Username,
			Limit:    submissionLimit(r),
		})
		if err != nil {
			span.RecordError(err)
			s.tel.ReportBroken(report_journal, err)
			s.writeJSON(w, http.StatusInternalServerError, submissionsResponse{
				Success:     false,
				Message:     err.Error(),
				Submissions: entries,
			})
			return
		}
		for _, row := range rows {
			entries = append(entries, submissionEntry{
				Activity:  row.Activity,
				Success:   row.Success,
				Message:   row.Message,
				CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
			})
		}
	}

	s.writeJSON(w, http.StatusOK, submissionsResponse{Success: true, Submissions: entries})
}

// ScheduleJournalPrune deletes journal entries older than retention once a
// day at 03:00.
func (s *Service) ScheduleJournalPrune(scheduler chrono.CronAPI, retention time.Duration) error {
	if s.journal == nil || retention <= 0 {
		return nil
	}
	return scheduler.Cron("0 3 * * *", func() {
		s.pruneJournal(context.Background(), time.Now().Add(-retention))
	})
}

func (s *Service) pruneJournal(ctx context.Context, before time.Time) {
	deleted, err := s.journal.DeleteSubmissionsBefore(ctx, before.Unix())
	if err != nil {
		s.tel.ReportBroken(report_journal_prune, err)
		return
	}
	s.tel.ReportCount(report_journal_prune, deleted)
}
