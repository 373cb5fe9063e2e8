package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalSubmit marks a customer submitting a quotation from the cart.
	ApprovalSubmit ApprovalAction = "SUBMIT"
	// ApprovalReview marks an admin pricing pass.
	ApprovalReview ApprovalAction = "REVIEW"
	// ApprovalNegotiate marks a counter proposal by either party.
	ApprovalNegotiate ApprovalAction = "NEGOTIATE"
	// ApprovalApprove marks an approval that finalized the quotation.
	ApprovalApprove ApprovalAction = "APPROVE"
)

// ApprovalLog represents a single approval record.
type ApprovalLog struct {
	ID      int64          `json:"id"`
	Module  string         `json:"module"`
	RefID   int64          `json:"ref_id"`
	ActorID int64          `json:"actor_id"`
	Action  ApprovalAction `json:"action"`
	Note    string         `json:"note,omitempty"`
	At      time.Time      `json:"at"`
}

// Querier runs a query. *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ApprovalRecorder persists approval history.
type ApprovalRecorder struct {
	db     Querier
	logger *slog.Logger
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(db Querier, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{db: db, logger: logger}
}

// Record writes an approval entry through exec, usually the caller's transaction.
func (r *ApprovalRecorder) Record(ctx context.Context, exec Execer, log ApprovalLog) error {
	if r == nil {
		return errors.New("approval recorder not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err := exec.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("record approval", slog.Any("error", err), slog.Int64("ref_id", log.RefID))
		}
		return err
	}
	return nil
}

// List returns approvals for module/ref in chronological order.
func (r *ApprovalRecorder) List(ctx context.Context, module string, ref int64) ([]ApprovalLog, error) {
	if r == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := r.db.Query(ctx, `SELECT id, module, ref_id, actor_id, action, note, at
FROM approvals WHERE module=$1 AND ref_id=$2 ORDER BY at ASC, id ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]ApprovalLog, 0)
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (l ApprovalLog) validate() error {
	switch {
	case l.Module == "":
		return errors.New("approval module required")
	case l.ActorID == 0:
		return errors.New("approval actor required")
	case l.RefID == 0:
		return errors.New("approval ref id required")
	case l.Action == "":
		return errors.New("approval action required")
	}
	return nil
}
