package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/okhv/sms-relay/internal/model"
)

const messageColumns = `
	id, ref, sender, phone, body, scheduled_at, lifetime,
	external_id, sent_status, delivered_status, dispatch_status,
	resend_external_id, attempt, created_at, updated_at`

type PostgresMessageRepo struct {
	db *sql.DB
}

func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

func (r *PostgresMessageRepo) Create(ctx context.Context, m *model.Message) error {
	now := time.Now().UTC()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sms_messages
			(ref, sender, phone, body, scheduled_at, lifetime, attempt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`, m.Ref, m.Sender, m.Phone, m.Body, nullTime(m.ScheduledAt), m.Lifetime, m.Attempt, now)

	if err := row.Scan(&m.ID); err != nil {
		return err
	}

	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

func (r *PostgresMessageRepo) SetExternalID(ctx context.Context, id int64, externalID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sms_messages
		SET external_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND external_id IS NULL
	`, id, externalID)
	return err
}

func (r *PostgresMessageRepo) ApplyCampaignStatus(ctx context.Context, id int64, sentStatus int, delivered model.DeliveryStatus, dispatchStatus string) error {
	// delivered_status only moves forward: once terminal it stays.
	_, err := r.db.ExecContext(ctx, `
		UPDATE sms_messages
		SET sent_status = $2,
		    delivered_status = CASE WHEN delivered_status = 0 THEN $3 ELSE delivered_status END,
		    dispatch_status = $4,
		    updated_at = now()
		WHERE id = $1
	`, id, sentStatus, int(delivered), dispatchStatus)
	return err
}

func (r *PostgresMessageRepo) RecordResend(ctx context.Context, id int64, attempt int, resendExternalID *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sms_messages
		SET attempt = $2,
		    resend_external_id = COALESCE($3, resend_external_id),
		    updated_at = now()
		WHERE id = $1
	`, id, attempt, nullString(resendExternalID))
	return err
}

func (r *PostgresMessageRepo) FindByExternalID(ctx context.Context, externalID string) (*model.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM sms_messages
		WHERE external_id = $1
		ORDER BY id ASC
		LIMIT 1
	`, externalID)
	return scanOne(row)
}

func (r *PostgresMessageRepo) FindByRef(ctx context.Context, ref string) (*model.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM sms_messages
		WHERE ref = $1
		LIMIT 1
	`, ref)
	return scanOne(row)
}

func (r *PostgresMessageRepo) ListAwaitingStatus(ctx context.Context, afterID int64, staleAfter, debounce time.Duration, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	now := time.Now().UTC()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM sms_messages
		WHERE id > $1
		  AND external_id IS NOT NULL
		  AND delivered_status = 0
		  AND created_at > $2
		  AND updated_at < $3
		ORDER BY id ASC
		LIMIT $4
	`, afterID, now.Add(-staleAfter), now.Add(-debounce), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAll(rows)
}

func (r *PostgresMessageRepo) ListResendable(ctx context.Context, afterID int64, minAge, maxAge time.Duration, maxAttempt, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	now := time.Now().UTC()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM sms_messages
		WHERE id > $1
		  AND resend_external_id IS NULL
		  AND attempt <= $2
		  AND delivered_status <> 1
		  AND created_at > $3
		  AND created_at < $4
		ORDER BY id ASC
		LIMIT $5
	`, afterID, maxAttempt, now.Add(-maxAge), now.Add(-minAge), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAll(rows)
}

func (r *PostgresMessageRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM sms_messages
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAll(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var m model.Message
	var scheduledAt sql.NullTime
	var externalID sql.NullString
	var delivered int
	var resendID sql.NullString

	if err := row.Scan(
		&m.ID,
		&m.Ref,
		&m.Sender,
		&m.Phone,
		&m.Body,
		&scheduledAt,
		&m.Lifetime,
		&externalID,
		&m.SentStatus,
		&delivered,
		&m.DispatchStatus,
		&resendID,
		&m.Attempt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.DeliveredStatus = model.DeliveryStatus(delivered)

	if scheduledAt.Valid {
		t := scheduledAt.Time
		m.ScheduledAt = &t
	}
	if externalID.Valid {
		s := externalID.String
		m.ExternalID = &s
	}
	if resendID.Valid {
		s := resendID.String
		m.ResendExternalID = &s
	}

	return &m, nil
}

func scanOne(row *sql.Row) (*model.Message, error) {
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func scanAll(rows *sql.Rows) ([]model.Message, error) {
	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
