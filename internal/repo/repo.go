package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"shiftcheck/internal/config"
	"shiftcheck/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// --- workspace config ---

func (r Repo) UpsertWorkspaceConfig(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.DB.ExecContext(ctx, `INSERT INTO workspace_config(id,config_json,created_at,updated_at) VALUES (1,?,?,?)
ON CONFLICT(id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, string(payload), now, now)
	return err
}

func (r Repo) GetWorkspaceConfig(ctx context.Context) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM workspace_config WHERE id=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

// --- templates ---

func (r Repo) InsertTemplate(ctx context.Context, tx *sql.Tx, t domain.Template) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO templates(id,name,shift,version,is_active,created_at) VALUES (?,?,?,?,?,?)`,
		t.ID, t.Name, t.Shift, t.Version, boolToInt(t.IsActive), t.CreatedAt)
	return err
}

func (r Repo) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	var t domain.Template
	var active int
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,shift,version,is_active,created_at FROM templates WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &t.Shift, &t.Version, &active, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.IsActive = active != 0
	return t, err
}

// ActiveTemplateForShift returns the newest active template for a shift.
func (r Repo) ActiveTemplateForShift(ctx context.Context, shift string) (domain.Template, error) {
	var t domain.Template
	var active int
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,shift,version,is_active,created_at FROM templates
WHERE shift=? AND is_active=1 ORDER BY version DESC, created_at DESC LIMIT 1`, shift).
		Scan(&t.ID, &t.Name, &t.Shift, &t.Version, &active, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.IsActive = active != 0
	return t, err
}

func (r Repo) ListTemplates(ctx context.Context, shift string) ([]domain.Template, error) {
	query := `SELECT id,name,shift,version,is_active,created_at FROM templates`
	var args []any
	if shift != "" {
		query += ` WHERE shift=?`
		args = append(args, shift)
	}
	query += ` ORDER BY shift, version DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Template
	for rows.Next() {
		var t domain.Template
		var active int
		if err := rows.Scan(&t.ID, &t.Name, &t.Shift, &t.Version, &active, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.IsActive = active != 0
		res = append(res, t)
	}
	return res, rows.Err()
}

// DeactivateTemplates retires all active templates for a shift ahead of a
// new version import.
func (r Repo) DeactivateTemplates(ctx context.Context, tx *sql.Tx, shift string) error {
	_, err := tx.ExecContext(ctx, `UPDATE templates SET is_active=0 WHERE shift=?`, shift)
	return err
}

func (r Repo) NextTemplateVersion(ctx context.Context, tx *sql.Tx, shift string) (int, error) {
	var v int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version),0) FROM templates WHERE shift=?`, shift).Scan(&v)
	return v + 1, err
}

func (r Repo) InsertTemplateItem(ctx context.Context, tx *sql.Tx, it domain.TemplateItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO template_items(id,template_id,title,item_type,is_required,severity,sort_order) VALUES (?,?,?,?,?,?,?)`,
		it.ID, it.TemplateID, it.Title, it.ItemType, boolToInt(it.IsRequired), it.Severity, it.SortOrder)
	return err
}

func (r Repo) InsertTemplateSubitem(ctx context.Context, tx *sql.Tx, s domain.TemplateSubitem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO template_subitems(id,template_item_id,title,item_type,is_required,severity,sort_order) VALUES (?,?,?,?,?,?,?)`,
		s.ID, s.TemplateItemID, s.Title, s.ItemType, boolToInt(s.IsRequired), s.Severity, s.SortOrder)
	return err
}

func (r Repo) ListTemplateItems(ctx context.Context, templateID string) ([]domain.TemplateItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,template_id,title,item_type,is_required,severity,sort_order
FROM template_items WHERE template_id=? ORDER BY sort_order, id`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TemplateItem
	for rows.Next() {
		var it domain.TemplateItem
		var required int
		if err := rows.Scan(&it.ID, &it.TemplateID, &it.Title, &it.ItemType, &required, &it.Severity, &it.SortOrder); err != nil {
			return nil, err
		}
		it.IsRequired = required != 0
		res = append(res, it)
	}
	return res, rows.Err()
}

func (r Repo) ListTemplateSubitems(ctx context.Context, templateItemID string) ([]domain.TemplateSubitem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,template_item_id,title,item_type,is_required,severity,sort_order
FROM template_subitems WHERE template_item_id=? ORDER BY sort_order, id`, templateItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TemplateSubitem
	for rows.Next() {
		var s domain.TemplateSubitem
		var required int
		if err := rows.Scan(&s.ID, &s.TemplateItemID, &s.Title, &s.ItemType, &required, &s.Severity, &s.SortOrder); err != nil {
			return nil, err
		}
		s.IsRequired = required != 0
		res = append(res, s)
	}
	return res, rows.Err()
}
