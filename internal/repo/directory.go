package repo

import (
	"context"
	"database/sql"
	"strings"

	"shiftcheck/internal/domain"
)

// UpsertUser registers or updates a directory entry.
func (r Repo) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,username,role) VALUES (?,?,?)
ON CONFLICT(id) DO UPDATE SET username=excluded.username, role=excluded.role`, u.ID, u.Username, u.Role)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT id,username,role FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Username, &u.Role)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// ListUsersByRoles resolves the notification audience for a set of roles.
func (r Repo) ListUsersByRoles(ctx context.Context, roles []string) ([]domain.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roles)), ",")
	args := make([]any, len(roles))
	for i, role := range roles {
		args[i] = role
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,username,role FROM users WHERE role IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// --- scheduled shifts ---

func (r Repo) InsertScheduledShift(ctx context.Context, s domain.ScheduledShift) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO scheduled_shifts(id,date,shift,user_id,status) VALUES (?,?,?,?,?)`,
		s.ID, s.Date, s.Shift, s.UserID, s.Status)
	return err
}

// ScheduledUserIDs returns users rostered for a date and shift, excluding
// cancelled entries.
func (r Repo) ScheduledUserIDs(ctx context.Context, date, shift string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT user_id FROM scheduled_shifts
WHERE date=? AND shift=? AND status != 'CANCELLED' ORDER BY user_id`, date, shift)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) ListScheduledShifts(ctx context.Context, date string) ([]domain.ScheduledShift, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,date,shift,user_id,status FROM scheduled_shifts WHERE date=? ORDER BY shift, user_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ScheduledShift
	for rows.Next() {
		var s domain.ScheduledShift
		if err := rows.Scan(&s.ID, &s.Date, &s.Shift, &s.UserID, &s.Status); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// --- participants ---

func (r Repo) AddParticipant(ctx context.Context, tx *sql.Tx, p domain.Participant) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO participants(instance_id,user_id,joined_at) VALUES (?,?,?)
ON CONFLICT(instance_id,user_id) DO NOTHING`, p.InstanceID, p.UserID, p.JoinedAt)
	return err
}

func (r Repo) ListParticipants(ctx context.Context, instanceID string) ([]domain.Participant, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT instance_id,user_id,joined_at FROM participants WHERE instance_id=? ORDER BY joined_at, user_id`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.InstanceID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
