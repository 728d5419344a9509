package repo

import (
	"context"
	"database/sql"

	"shiftcheck/internal/domain"
)

func scanInstance(scan func(dest ...any) error) (domain.Instance, error) {
	var in domain.Instance
	var startedAt, completedAt, completedBy sql.NullString
	err := scan(&in.ID, &in.TemplateID, &in.Date, &in.Shift, &in.ShiftStart, &in.ShiftEnd,
		&in.Status, &in.CreatedBy, &in.CreatedAt, &startedAt, &completedAt, &completedBy)
	if err == sql.ErrNoRows {
		return in, ErrNotFound
	}
	if err != nil {
		return in, err
	}
	if startedAt.Valid {
		in.StartedAt = &startedAt.String
	}
	if completedAt.Valid {
		in.CompletedAt = &completedAt.String
	}
	if completedBy.Valid {
		in.CompletedBy = &completedBy.String
	}
	return in, nil
}

const instanceCols = `id,template_id,date,shift,shift_start,shift_end,status,created_by,created_at,started_at,completed_at,completed_by`

func (r Repo) InsertInstance(ctx context.Context, tx *sql.Tx, in domain.Instance) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO instances(`+instanceCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		in.ID, in.TemplateID, in.Date, in.Shift, in.ShiftStart, in.ShiftEnd, in.Status, in.CreatedBy, in.CreatedAt,
		nullableStringPtr(in.StartedAt), nullableStringPtr(in.CompletedAt), nullableStringPtr(in.CompletedBy))
	return err
}

func (r Repo) GetInstance(ctx context.Context, id string) (domain.Instance, error) {
	return scanInstance(r.DB.QueryRowContext(ctx, `SELECT `+instanceCols+` FROM instances WHERE id=?`, id).Scan)
}

func (r Repo) GetInstanceTx(ctx context.Context, tx *sql.Tx, id string) (domain.Instance, error) {
	return scanInstance(tx.QueryRowContext(ctx, `SELECT `+instanceCols+` FROM instances WHERE id=?`, id).Scan)
}

// FindInstance locates an existing deployment of a template for a date and shift.
func (r Repo) FindInstance(ctx context.Context, templateID, date, shift string) (domain.Instance, error) {
	return scanInstance(r.DB.QueryRowContext(ctx,
		`SELECT `+instanceCols+` FROM instances WHERE template_id=? AND date=? AND shift=?`, templateID, date, shift).Scan)
}

func (r Repo) ListInstancesByDate(ctx context.Context, date, shift string) ([]domain.Instance, error) {
	query := `SELECT ` + instanceCols + ` FROM instances WHERE date=?`
	args := []any{date}
	if shift != "" {
		query += ` AND shift=?`
		args = append(args, shift)
	}
	query += ` ORDER BY shift, created_at`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Instance
	for rows.Next() {
		in, err := scanInstance(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, in)
	}
	return res, rows.Err()
}

// UpdateInstanceStatus persists the derived rollup status and lifecycle timestamps.
func (r Repo) UpdateInstanceStatus(ctx context.Context, tx *sql.Tx, in domain.Instance) error {
	_, err := tx.ExecContext(ctx, `UPDATE instances SET status=?, started_at=?, completed_at=?, completed_by=? WHERE id=?`,
		in.Status, nullableStringPtr(in.StartedAt), nullableStringPtr(in.CompletedAt), nullableStringPtr(in.CompletedBy), in.ID)
	return err
}

// --- instance items ---

const itemCols = `id,instance_id,template_item_id,title,item_type,is_required,severity,sort_order,status,completed_by,completed_at,skipped_reason,failure_reason`

func scanItem(scan func(dest ...any) error) (domain.InstanceItem, error) {
	var it domain.InstanceItem
	var required int
	var completedBy, completedAt, skippedReason, failureReason sql.NullString
	err := scan(&it.ID, &it.InstanceID, &it.TemplateItemID, &it.Title, &it.ItemType, &required, &it.Severity,
		&it.SortOrder, &it.Status, &completedBy, &completedAt, &skippedReason, &failureReason)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	it.IsRequired = required != 0
	if completedBy.Valid {
		it.CompletedBy = &completedBy.String
	}
	if completedAt.Valid {
		it.CompletedAt = &completedAt.String
	}
	if skippedReason.Valid {
		it.SkippedReason = &skippedReason.String
	}
	if failureReason.Valid {
		it.FailureReason = &failureReason.String
	}
	return it, nil
}

func (r Repo) InsertInstanceItem(ctx context.Context, tx *sql.Tx, it domain.InstanceItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO instance_items(`+itemCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.ID, it.InstanceID, it.TemplateItemID, it.Title, it.ItemType, boolToInt(it.IsRequired), it.Severity,
		it.SortOrder, it.Status, nullableStringPtr(it.CompletedBy), nullableStringPtr(it.CompletedAt),
		nullableStringPtr(it.SkippedReason), nullableStringPtr(it.FailureReason))
	return err
}

func (r Repo) GetInstanceItem(ctx context.Context, id string) (domain.InstanceItem, error) {
	return scanItem(r.DB.QueryRowContext(ctx, `SELECT `+itemCols+` FROM instance_items WHERE id=?`, id).Scan)
}

func (r Repo) GetInstanceItemTx(ctx context.Context, tx *sql.Tx, id string) (domain.InstanceItem, error) {
	return scanItem(tx.QueryRowContext(ctx, `SELECT `+itemCols+` FROM instance_items WHERE id=?`, id).Scan)
}

// UpdateInstanceItem writes the full status-bearing row; structural columns never change.
func (r Repo) UpdateInstanceItem(ctx context.Context, tx *sql.Tx, it domain.InstanceItem) error {
	_, err := tx.ExecContext(ctx, `UPDATE instance_items SET status=?, completed_by=?, completed_at=?, skipped_reason=?, failure_reason=? WHERE id=?`,
		it.Status, nullableStringPtr(it.CompletedBy), nullableStringPtr(it.CompletedAt),
		nullableStringPtr(it.SkippedReason), nullableStringPtr(it.FailureReason), it.ID)
	return err
}

func (r Repo) ListInstanceItems(ctx context.Context, instanceID string) ([]domain.InstanceItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+itemCols+` FROM instance_items WHERE instance_id=? ORDER BY sort_order, id`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r Repo) ListInstanceItemsTx(ctx context.Context, tx *sql.Tx, instanceID string) ([]domain.InstanceItem, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+itemCols+` FROM instance_items WHERE instance_id=? ORDER BY sort_order, id`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]domain.InstanceItem, error) {
	var res []domain.InstanceItem
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

// --- instance subitems ---

const subitemCols = `id,item_id,title,item_type,is_required,severity,sort_order,status,completed_by,completed_at,skipped_reason,failure_reason`

func scanSubitem(scan func(dest ...any) error) (domain.InstanceSubitem, error) {
	var s domain.InstanceSubitem
	var required int
	var completedBy, completedAt, skippedReason, failureReason sql.NullString
	err := scan(&s.ID, &s.ItemID, &s.Title, &s.ItemType, &required, &s.Severity,
		&s.SortOrder, &s.Status, &completedBy, &completedAt, &skippedReason, &failureReason)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.IsRequired = required != 0
	if completedBy.Valid {
		s.CompletedBy = &completedBy.String
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.String
	}
	if skippedReason.Valid {
		s.SkippedReason = &skippedReason.String
	}
	if failureReason.Valid {
		s.FailureReason = &failureReason.String
	}
	return s, nil
}

func (r Repo) InsertInstanceSubitem(ctx context.Context, tx *sql.Tx, s domain.InstanceSubitem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO instance_subitems(`+subitemCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.ItemID, s.Title, s.ItemType, boolToInt(s.IsRequired), s.Severity,
		s.SortOrder, s.Status, nullableStringPtr(s.CompletedBy), nullableStringPtr(s.CompletedAt),
		nullableStringPtr(s.SkippedReason), nullableStringPtr(s.FailureReason))
	return err
}

func (r Repo) GetInstanceSubitem(ctx context.Context, id string) (domain.InstanceSubitem, error) {
	return scanSubitem(r.DB.QueryRowContext(ctx, `SELECT `+subitemCols+` FROM instance_subitems WHERE id=?`, id).Scan)
}

func (r Repo) GetInstanceSubitemTx(ctx context.Context, tx *sql.Tx, id string) (domain.InstanceSubitem, error) {
	return scanSubitem(tx.QueryRowContext(ctx, `SELECT `+subitemCols+` FROM instance_subitems WHERE id=?`, id).Scan)
}

func (r Repo) UpdateInstanceSubitem(ctx context.Context, tx *sql.Tx, s domain.InstanceSubitem) error {
	_, err := tx.ExecContext(ctx, `UPDATE instance_subitems SET status=?, completed_by=?, completed_at=?, skipped_reason=?, failure_reason=? WHERE id=?`,
		s.Status, nullableStringPtr(s.CompletedBy), nullableStringPtr(s.CompletedAt),
		nullableStringPtr(s.SkippedReason), nullableStringPtr(s.FailureReason), s.ID)
	return err
}

func (r Repo) ListInstanceSubitems(ctx context.Context, itemID string) ([]domain.InstanceSubitem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+subitemCols+` FROM instance_subitems WHERE item_id=? ORDER BY sort_order, id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubitems(rows)
}

func (r Repo) ListInstanceSubitemsTx(ctx context.Context, tx *sql.Tx, itemID string) ([]domain.InstanceSubitem, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+subitemCols+` FROM instance_subitems WHERE item_id=? ORDER BY sort_order, id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubitems(rows)
}

func collectSubitems(rows *sql.Rows) ([]domain.InstanceSubitem, error) {
	var res []domain.InstanceSubitem
	for rows.Next() {
		s, err := scanSubitem(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
