package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"shiftcheck/internal/domain"
	"shiftcheck/internal/events"
)

// TemplateSpec is the YAML shape of an importable checklist template.
type TemplateSpec struct {
	Name  string             `yaml:"name"`
	Shift string             `yaml:"shift"`
	Items []TemplateItemSpec `yaml:"items"`
}

type TemplateItemSpec struct {
	Title     string                `yaml:"title"`
	ItemType  string                `yaml:"item_type"`
	Required  *bool                 `yaml:"required"`
	Severity  string                `yaml:"severity"`
	SortOrder int                   `yaml:"sort_order"`
	Subitems  []TemplateSubitemSpec `yaml:"subitems"`
}

type TemplateSubitemSpec struct {
	Title     string `yaml:"title"`
	ItemType  string `yaml:"item_type"`
	Required  *bool  `yaml:"required"`
	Severity  string `yaml:"severity"`
	SortOrder int    `yaml:"sort_order"`
}

// ParseTemplateSpec decodes a template seed file.
func ParseTemplateSpec(data []byte) (TemplateSpec, error) {
	var spec TemplateSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return spec, err
	}
	return spec, spec.validate()
}

func (s TemplateSpec) validate() error {
	if s.Name == "" {
		return errors.New("template name is required")
	}
	if s.Shift == "" {
		return errors.New("template shift is required")
	}
	if len(s.Items) == 0 {
		return errors.New("template needs at least one item")
	}
	seen := map[int]bool{}
	for i, it := range s.Items {
		if it.Title == "" {
			return fmt.Errorf("item %d: title is required", i+1)
		}
		if it.SortOrder != 0 {
			if seen[it.SortOrder] {
				return fmt.Errorf("item %d: duplicate sort_order %d", i+1, it.SortOrder)
			}
			seen[it.SortOrder] = true
		}
		subSeen := map[int]bool{}
		for j, sub := range it.Subitems {
			if sub.Title == "" {
				return fmt.Errorf("item %d subitem %d: title is required", i+1, j+1)
			}
			if sub.SortOrder != 0 {
				if subSeen[sub.SortOrder] {
					return fmt.Errorf("item %d subitem %d: duplicate sort_order %d", i+1, j+1, sub.SortOrder)
				}
				subSeen[sub.SortOrder] = true
			}
		}
	}
	return nil
}

func specSortOrder(explicit, index int) int {
	if explicit != 0 {
		return explicit
	}
	return (index + 1) * 100
}

func specItemType(v string) string {
	if v == "" {
		return "CHECK"
	}
	return v
}

func specSeverity(v string) string {
	if v == "" {
		return "NORMAL"
	}
	return v
}

func specRequired(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

// ImportTemplate registers a new template version for its shift and
// deactivates prior versions. Active instances keep their snapshots;
// importing never touches deployed state.
func (e Engine) ImportTemplate(ctx context.Context, spec TemplateSpec, actorID string) (domain.Template, error) {
	if e.Config == nil {
		return domain.Template{}, errors.New("config not loaded")
	}
	if err := spec.validate(); err != nil {
		return domain.Template{}, err
	}
	if _, ok := e.Config.Shifts[spec.Shift]; !ok {
		return domain.Template{}, fmt.Errorf("%w: %s", ErrInvalidShift, spec.Shift)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Template{}, err
	}
	defer tx.Rollback()

	version, err := e.Repo.NextTemplateVersion(ctx, tx, spec.Shift)
	if err != nil {
		return domain.Template{}, err
	}
	if err := e.Repo.DeactivateTemplates(ctx, tx, spec.Shift); err != nil {
		return domain.Template{}, err
	}
	t := domain.Template{
		ID:        uuid.New().String(),
		Name:      spec.Name,
		Shift:     spec.Shift,
		Version:   version,
		IsActive:  true,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertTemplate(ctx, tx, t); err != nil {
		return domain.Template{}, err
	}
	for i, itemSpec := range spec.Items {
		item := domain.TemplateItem{
			ID:         uuid.New().String(),
			TemplateID: t.ID,
			Title:      itemSpec.Title,
			ItemType:   specItemType(itemSpec.ItemType),
			IsRequired: specRequired(itemSpec.Required),
			Severity:   specSeverity(itemSpec.Severity),
			SortOrder:  specSortOrder(itemSpec.SortOrder, i),
		}
		if err := e.Repo.InsertTemplateItem(ctx, tx, item); err != nil {
			return domain.Template{}, fmt.Errorf("insert item %q: %w", item.Title, err)
		}
		for j, subSpec := range itemSpec.Subitems {
			sub := domain.TemplateSubitem{
				ID:             uuid.New().String(),
				TemplateItemID: item.ID,
				Title:          subSpec.Title,
				ItemType:       specItemType(subSpec.ItemType),
				IsRequired:     specRequired(subSpec.Required),
				Severity:       specSeverity(subSpec.Severity),
				SortOrder:      specSortOrder(subSpec.SortOrder, j),
			}
			if err := e.Repo.InsertTemplateSubitem(ctx, tx, sub); err != nil {
				return domain.Template{}, fmt.Errorf("insert subitem %q: %w", sub.Title, err)
			}
		}
	}
	if err := e.Events.Append(ctx, tx, "template.imported", "", "template", t.ID, actorID, events.EventPayload{
		"name":    t.Name,
		"shift":   t.Shift,
		"version": t.Version,
	}); err != nil {
		return domain.Template{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}
