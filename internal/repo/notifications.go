package repo

import (
	"context"

	"shiftcheck/internal/domain"
)

// InsertNotification appends a notification, deduplicating on the
// (node_id, node_status, recipient_id) key so a redelivered transition
// never produces a duplicate row. Returns true if a row was written.
func (r Repo) InsertNotification(ctx context.Context, n domain.Notification) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO notifications(id,recipient_id,node_id,node_status,severity,title,message,is_read,created_at)
VALUES (?,?,?,?,?,?,?,0,?)
ON CONFLICT(node_id,node_status,recipient_id) DO NOTHING`,
		n.ID, n.RecipientID, n.NodeID, n.NodeStatus, n.Severity, n.Title, n.Message, n.CreatedAt)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

type NotificationFilters struct {
	RecipientID string
	UnreadOnly  bool
	Limit       int
}

func (r Repo) ListNotifications(ctx context.Context, f NotificationFilters) ([]domain.Notification, error) {
	query := `SELECT id,recipient_id,node_id,node_status,severity,title,message,is_read,created_at FROM notifications`
	var clauses []string
	var args []any
	if f.RecipientID != "" {
		clauses = append(clauses, "recipient_id=?")
		args = append(args, f.RecipientID)
	}
	if f.UnreadOnly {
		clauses = append(clauses, "is_read=0")
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var read int
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.NodeID, &n.NodeStatus, &n.Severity, &n.Title, &n.Message, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.IsRead = read != 0
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE recipient_id=? AND is_read=0`, recipientID).Scan(&count)
	return count, err
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, instanceID, evtType string) ([]domain.Event, error) {
	query := `SELECT id,ts,type,COALESCE(instance_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events`
	var clauses []string
	var args []any
	if instanceID != "" {
		clauses = append(clauses, "instance_id=?")
		args = append(args, instanceID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.InstanceID, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
