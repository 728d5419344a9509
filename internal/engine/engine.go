package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"shiftcheck/internal/config"
	"shiftcheck/internal/domain"
	"shiftcheck/internal/events"
	"shiftcheck/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Logger *log.Logger
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowStr() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) dispatcher() Dispatcher {
	return Dispatcher{Repo: e.Repo, Config: e.Config, Now: e.Now, Logger: e.Logger}
}

// InstanceCreateOptions are parameters for deploying a template.
type InstanceCreateOptions struct {
	TemplateID string // optional; active template for the shift when empty
	Date       string // YYYY-MM-DD
	Shift      string
	ActorID    string
}

// CreateInstance deploys a template as a running checklist for a date and
// shift. The template structure is deep-copied: later template edits never
// reach the instance. Creation is idempotent per (template, date, shift);
// an existing deployment is returned as-is. Participant population from the
// shift roster is best-effort and never fails the creation.
func (e Engine) CreateInstance(ctx context.Context, opts InstanceCreateOptions) (domain.Instance, error) {
	if e.Config == nil {
		return domain.Instance{}, errors.New("config not loaded")
	}
	date, err := time.Parse("2006-01-02", opts.Date)
	if err != nil {
		return domain.Instance{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", opts.Date)
	}
	start, end, err := e.Config.ShiftWindow(opts.Shift, date)
	if err != nil {
		return domain.Instance{}, fmt.Errorf("%w: %s", ErrInvalidShift, opts.Shift)
	}

	var t domain.Template
	if opts.TemplateID != "" {
		t, err = e.Repo.GetTemplate(ctx, opts.TemplateID)
		if err != nil {
			return domain.Instance{}, fmt.Errorf("template %s: %w", opts.TemplateID, err)
		}
	} else {
		t, err = e.Repo.ActiveTemplateForShift(ctx, opts.Shift)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Instance{}, fmt.Errorf("no active template for shift %s: %w", opts.Shift, err)
			}
			return domain.Instance{}, err
		}
	}

	if existing, err := e.Repo.FindInstance(ctx, t.ID, opts.Date, opts.Shift); err == nil {
		return existing, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Instance{}, err
	}

	items, err := e.Repo.ListTemplateItems(ctx, t.ID)
	if err != nil {
		return domain.Instance{}, err
	}

	in := domain.Instance{
		ID:         uuid.New().String(),
		TemplateID: t.ID,
		Date:       opts.Date,
		Shift:      opts.Shift,
		ShiftStart: start.Format(time.RFC3339),
		ShiftEnd:   end.Format(time.RFC3339),
		Status:     domain.StatusPending,
		CreatedBy:  opts.ActorID,
		CreatedAt:  e.nowStr(),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Instance{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertInstance(ctx, tx, in); err != nil {
		return domain.Instance{}, fmt.Errorf("insert instance: %w", err)
	}
	for _, tmplItem := range items {
		item := domain.InstanceItem{
			ID:             uuid.New().String(),
			InstanceID:     in.ID,
			TemplateItemID: tmplItem.ID,
			Title:          tmplItem.Title,
			ItemType:       tmplItem.ItemType,
			IsRequired:     tmplItem.IsRequired,
			Severity:       tmplItem.Severity,
			SortOrder:      tmplItem.SortOrder,
			Status:         domain.StatusPending,
		}
		if err := e.Repo.InsertInstanceItem(ctx, tx, item); err != nil {
			return domain.Instance{}, fmt.Errorf("copy item %q: %w", tmplItem.Title, err)
		}
		subs, err := e.Repo.ListTemplateSubitems(ctx, tmplItem.ID)
		if err != nil {
			return domain.Instance{}, err
		}
		for _, tmplSub := range subs {
			sub := domain.InstanceSubitem{
				ID:         uuid.New().String(),
				ItemID:     item.ID,
				Title:      tmplSub.Title,
				ItemType:   tmplSub.ItemType,
				IsRequired: tmplSub.IsRequired,
				Severity:   tmplSub.Severity,
				SortOrder:  tmplSub.SortOrder,
				Status:     domain.StatusPending,
			}
			if err := e.Repo.InsertInstanceSubitem(ctx, tx, sub); err != nil {
				return domain.Instance{}, fmt.Errorf("copy subitem %q: %w", tmplSub.Title, err)
			}
		}
	}

	e.populateParticipants(ctx, tx, in)

	if err := e.Events.Append(ctx, tx, "instance.created", in.ID, "instance", in.ID, opts.ActorID, events.EventPayload{
		"template_id": t.ID,
		"date":        in.Date,
		"shift":       in.Shift,
	}); err != nil {
		return domain.Instance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Instance{}, err
	}
	return in, nil
}

// populateParticipants copies the shift roster onto the instance. Failures
// are logged; instance creation proceeds regardless.
func (e Engine) populateParticipants(ctx context.Context, tx *sql.Tx, in domain.Instance) {
	userIDs, err := e.Repo.ScheduledUserIDs(ctx, in.Date, in.Shift)
	if err != nil {
		e.logger().Printf("WARNING: participant population failed for instance %s: %v", in.ID, err)
		return
	}
	for _, userID := range userIDs {
		p := domain.Participant{InstanceID: in.ID, UserID: userID, JoinedAt: e.nowStr()}
		if err := e.Repo.AddParticipant(ctx, tx, p); err != nil {
			e.logger().Printf("WARNING: failed to add participant %s to instance %s: %v", userID, in.ID, err)
		}
	}
}

// JoinInstance registers a user as a participant.
func (e Engine) JoinInstance(ctx context.Context, instanceID, userID, actorID string) (domain.Participant, error) {
	if _, err := e.Repo.GetInstance(ctx, instanceID); err != nil {
		return domain.Participant{}, fmt.Errorf("instance %s: %w", instanceID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Participant{}, err
	}
	defer tx.Rollback()
	p := domain.Participant{InstanceID: instanceID, UserID: userID, JoinedAt: e.nowStr()}
	if err := e.Repo.AddParticipant(ctx, tx, p); err != nil {
		return domain.Participant{}, err
	}
	if err := e.Events.Append(ctx, tx, "instance.joined", instanceID, "participant", userID, actorID, events.EventPayload{}); err != nil {
		return domain.Participant{}, err
	}
	return p, tx.Commit()
}

// StartWorkResult reports the item state after opening it for work.
type StartWorkResult struct {
	Item        domain.InstanceItem
	NextSubitem *domain.InstanceSubitem
	Stats       RollupResult
}

// StartWork opens an item for work. When the item has subitems the first
// actionable one is moved to IN_PROGRESS in the same transaction and
// returned; an item already in progress is a no-op that reports current
// state. Items without subitems simply transition to IN_PROGRESS.
func (e Engine) StartWork(ctx context.Context, itemID, actorID string) (StartWorkResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return StartWorkResult{}, err
	}
	defer tx.Rollback()

	item, err := e.Repo.GetInstanceItemTx(ctx, tx, itemID)
	if err != nil {
		return StartWorkResult{}, fmt.Errorf("item %s: %w", itemID, err)
	}
	if IsTerminal(item.Status) {
		return StartWorkResult{}, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, item.Status)
	}
	changed := false
	if item.Status == domain.StatusPending {
		item.Status = domain.StatusInProgress
		if err := e.Repo.UpdateInstanceItem(ctx, tx, item); err != nil {
			return StartWorkResult{}, err
		}
		changed = true
	}

	subs, err := e.Repo.ListInstanceSubitemsTx(ctx, tx, item.ID)
	if err != nil {
		return StartWorkResult{}, err
	}
	next := NextActionable(subs)
	if next != nil && next.Status == domain.StatusPending {
		next.Status = domain.StatusInProgress
		if err := e.Repo.UpdateInstanceSubitem(ctx, tx, *next); err != nil {
			return StartWorkResult{}, err
		}
		for i := range subs {
			if subs[i].ID == next.ID {
				subs[i].Status = domain.StatusInProgress
			}
		}
		changed = true
	}

	if changed {
		if err := e.promoteInstance(ctx, tx, item.InstanceID); err != nil {
			return StartWorkResult{}, err
		}
		if err := e.Events.Append(ctx, tx, "item.started", item.InstanceID, "item", item.ID, actorID, events.EventPayload{
			"status": item.Status,
		}); err != nil {
			return StartWorkResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return StartWorkResult{}, err
		}
	}
	return StartWorkResult{Item: item, NextSubitem: next, Stats: Rollup(SubitemStatuses(subs))}, nil
}

// promoteInstance moves a PENDING instance to IN_PROGRESS and stamps StartedAt.
func (e Engine) promoteInstance(ctx context.Context, tx *sql.Tx, instanceID string) error {
	in, err := e.Repo.GetInstanceTx(ctx, tx, instanceID)
	if err != nil {
		return err
	}
	if in.Status != domain.StatusPending {
		return nil
	}
	in.Status = domain.StatusInProgress
	now := e.nowStr()
	in.StartedAt = &now
	return e.Repo.UpdateInstanceStatus(ctx, tx, in)
}

// SubitemUpdateOptions are parameters for actioning a subitem.
type SubitemUpdateOptions struct {
	SubitemID string
	Status    string
	ActorID   string
	Reason    string
	Comment   string
}

// SubitemUpdateResult reports the subitem and sequencing state after an update.
type SubitemUpdateResult struct {
	Subitem         domain.InstanceSubitem
	NextSubitem     *domain.InstanceSubitem
	AllSubitemsDone bool
	Stats           RollupResult
	Dispatched      int
}

// UpdateSubitemStatus transitions a subitem. The transition, the parent
// refresh and the event append share one transaction; notification dispatch
// for SKIPPED/FAILED happens after commit and cannot roll the change back.
// Retrying an identical terminal transition is a no-op success.
func (e Engine) UpdateSubitemStatus(ctx context.Context, opts SubitemUpdateOptions) (SubitemUpdateResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return SubitemUpdateResult{}, err
	}
	defer tx.Rollback()

	sub, err := e.Repo.GetInstanceSubitemTx(ctx, tx, opts.SubitemID)
	if err != nil {
		return SubitemUpdateResult{}, fmt.Errorf("subitem %s: %w", opts.SubitemID, err)
	}
	item, err := e.Repo.GetInstanceItemTx(ctx, tx, sub.ItemID)
	if err != nil {
		return SubitemUpdateResult{}, err
	}
	in, err := e.Repo.GetInstanceTx(ctx, tx, item.InstanceID)
	if err != nil {
		return SubitemUpdateResult{}, err
	}

	noop, err := ValidateTransition(sub.Status, opts.Status, opts.Reason, sub.Reason())
	if err != nil {
		return SubitemUpdateResult{}, err
	}

	subs, err := e.Repo.ListInstanceSubitemsTx(ctx, tx, item.ID)
	if err != nil {
		return SubitemUpdateResult{}, err
	}
	if noop {
		return SubitemUpdateResult{
			Subitem:         sub,
			NextSubitem:     NextActionable(subs),
			AllSubitemsDone: AllActioned(subs),
			Stats:           Rollup(SubitemStatuses(subs)),
		}, nil
	}

	from := sub.Status
	sub.Status = opts.Status
	switch opts.Status {
	case domain.StatusCompleted:
		now := e.nowStr()
		sub.CompletedBy = &opts.ActorID
		sub.CompletedAt = &now
	case domain.StatusSkipped:
		sub.SkippedReason = &opts.Reason
	case domain.StatusFailed:
		sub.FailureReason = &opts.Reason
	}
	if err := e.Repo.UpdateInstanceSubitem(ctx, tx, sub); err != nil {
		return SubitemUpdateResult{}, err
	}
	for i := range subs {
		if subs[i].ID == sub.ID {
			subs[i] = sub
		}
	}

	// A subitem actioned before StartWork still pulls its parents along.
	if item.Status == domain.StatusPending {
		item.Status = domain.StatusInProgress
		if err := e.Repo.UpdateInstanceItem(ctx, tx, item); err != nil {
			return SubitemUpdateResult{}, err
		}
	}
	if err := e.promoteInstance(ctx, tx, in.ID); err != nil {
		return SubitemUpdateResult{}, err
	}

	payload := events.EventPayload{"from": from, "to": sub.Status}
	if opts.Reason != "" {
		payload["reason"] = opts.Reason
	}
	if opts.Comment != "" {
		payload["comment"] = opts.Comment
	}
	if err := e.Events.Append(ctx, tx, "subitem.updated", in.ID, "subitem", sub.ID, opts.ActorID, payload); err != nil {
		return SubitemUpdateResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return SubitemUpdateResult{}, err
	}

	res := SubitemUpdateResult{
		Subitem:         sub,
		NextSubitem:     NextActionable(subs),
		AllSubitemsDone: AllActioned(subs),
		Stats:           Rollup(SubitemStatuses(subs)),
	}
	if sub.Status == domain.StatusSkipped || sub.Status == domain.StatusFailed {
		res.Dispatched = e.dispatcher().OnTransition(ctx, TransitionNotice{
			NodeID:    sub.ID,
			NodeKind:  "subitem",
			NodeTitle: sub.Title,
			ToStatus:  sub.Status,
			ActorID:   opts.ActorID,
			Reason:    opts.Reason,
			Instance:  in,
		})
	}
	return res, nil
}

// CompletionSummary is the read-only view of an item's subitem progress.
type CompletionSummary struct {
	Item              domain.InstanceItem
	Subitems          []domain.InstanceSubitem
	Stats             RollupResult
	CanCompleteParent bool
}

func (e Engine) GetCompletionSummary(ctx context.Context, itemID string) (CompletionSummary, error) {
	item, err := e.Repo.GetInstanceItem(ctx, itemID)
	if err != nil {
		return CompletionSummary{}, fmt.Errorf("item %s: %w", itemID, err)
	}
	subs, err := e.Repo.ListInstanceSubitems(ctx, itemID)
	if err != nil {
		return CompletionSummary{}, err
	}
	stats := Rollup(SubitemStatuses(subs))
	return CompletionSummary{
		Item:              item,
		Subitems:          subs,
		Stats:             stats,
		CanCompleteParent: stats.CanCompleteParent,
	}, nil
}

// ItemCompleteOptions are parameters for closing an item.
type ItemCompleteOptions struct {
	ItemID  string
	Status  string // COMPLETED, SKIPPED or FAILED
	ActorID string
	Reason  string

	// AcknowledgeFailures permits COMPLETED over subitems that FAILED.
	AcknowledgeFailures bool
}

// ItemCompleteResult reports the item and the recomputed instance rollup.
type ItemCompleteResult struct {
	Item           domain.InstanceItem
	Instance       domain.Instance
	InstanceRollup RollupResult
	Dispatched     int
}

// CompleteItem closes an item and recomputes the instance status from all
// items in the same transaction. COMPLETED is gated on every subitem being
// actioned; a FAILED subitem additionally takes an explicit acknowledgment.
func (e Engine) CompleteItem(ctx context.Context, opts ItemCompleteOptions) (ItemCompleteResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ItemCompleteResult{}, err
	}
	defer tx.Rollback()

	item, err := e.Repo.GetInstanceItemTx(ctx, tx, opts.ItemID)
	if err != nil {
		return ItemCompleteResult{}, fmt.Errorf("item %s: %w", opts.ItemID, err)
	}
	in, err := e.Repo.GetInstanceTx(ctx, tx, item.InstanceID)
	if err != nil {
		return ItemCompleteResult{}, err
	}

	noop, err := ValidateTransition(item.Status, opts.Status, opts.Reason, item.Reason())
	if err != nil {
		return ItemCompleteResult{}, err
	}
	if noop {
		items, err := e.Repo.ListInstanceItemsTx(ctx, tx, in.ID)
		if err != nil {
			return ItemCompleteResult{}, err
		}
		return ItemCompleteResult{Item: item, Instance: in, InstanceRollup: Rollup(ItemStatuses(items))}, nil
	}

	if opts.Status == domain.StatusCompleted {
		subs, err := e.Repo.ListInstanceSubitemsTx(ctx, tx, item.ID)
		if err != nil {
			return ItemCompleteResult{}, err
		}
		if len(subs) > 0 {
			stats := Rollup(SubitemStatuses(subs))
			if !stats.AllActioned {
				return ItemCompleteResult{}, fmt.Errorf("%w: %d of %d remaining",
					ErrSequencingViolation, stats.Pending+stats.InProgress, stats.Total)
			}
			if !stats.CanCompleteParent && !opts.AcknowledgeFailures {
				return ItemCompleteResult{}, fmt.Errorf("%w: %d failed", ErrFailedSubitems, stats.Failed)
			}
		}
	}

	item.Status = opts.Status
	switch opts.Status {
	case domain.StatusCompleted:
		now := e.nowStr()
		item.CompletedBy = &opts.ActorID
		item.CompletedAt = &now
	case domain.StatusSkipped:
		item.SkippedReason = &opts.Reason
	case domain.StatusFailed:
		item.FailureReason = &opts.Reason
	}
	if err := e.Repo.UpdateInstanceItem(ctx, tx, item); err != nil {
		return ItemCompleteResult{}, err
	}

	// Re-read committed item state for the rollup, never request-start state.
	items, err := e.Repo.ListInstanceItemsTx(ctx, tx, in.ID)
	if err != nil {
		return ItemCompleteResult{}, err
	}
	roll := Rollup(ItemStatuses(items))
	in, closed, err := e.applyInstanceRollup(ctx, tx, in, roll, opts.ActorID)
	if err != nil {
		return ItemCompleteResult{}, err
	}

	payload := events.EventPayload{"status": item.Status}
	if opts.Reason != "" {
		payload["reason"] = opts.Reason
	}
	if err := e.Events.Append(ctx, tx, "item.closed", in.ID, "item", item.ID, opts.ActorID, payload); err != nil {
		return ItemCompleteResult{}, err
	}
	if closed {
		if err := e.Events.Append(ctx, tx, "instance.closed", in.ID, "instance", in.ID, opts.ActorID, events.EventPayload{
			"status":     in.Status,
			"percentage": roll.Percentage,
		}); err != nil {
			return ItemCompleteResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ItemCompleteResult{}, err
	}

	res := ItemCompleteResult{Item: item, Instance: in, InstanceRollup: roll}
	d := e.dispatcher()
	if item.Status == domain.StatusSkipped || item.Status == domain.StatusFailed {
		res.Dispatched += d.OnTransition(ctx, TransitionNotice{
			NodeID:    item.ID,
			NodeKind:  "item",
			NodeTitle: item.Title,
			ToStatus:  item.Status,
			ActorID:   opts.ActorID,
			Reason:    opts.Reason,
			Instance:  in,
		})
	}
	if closed {
		res.Dispatched += d.OnInstanceClosed(ctx, in, roll, opts.ActorID)
	}
	return res, nil
}

// applyInstanceRollup persists the derived instance status. Returns the
// updated instance and whether it just reached a terminal state.
func (e Engine) applyInstanceRollup(ctx context.Context, tx *sql.Tx, in domain.Instance, roll RollupResult, actorID string) (domain.Instance, bool, error) {
	derived := roll.DerivedStatus
	if derived == "" || derived == in.Status {
		return in, false, nil
	}
	in.Status = derived
	closed := false
	switch derived {
	case domain.StatusCompleted, domain.StatusCompletedWithExceptions:
		now := e.nowStr()
		in.CompletedAt = &now
		in.CompletedBy = &actorID
		closed = true
	case domain.StatusInProgress:
		if in.StartedAt == nil {
			now := e.nowStr()
			in.StartedAt = &now
		}
	}
	if err := e.Repo.UpdateInstanceStatus(ctx, tx, in); err != nil {
		return in, false, err
	}
	return in, closed, nil
}

// InstanceSummary is the read-only aggregate view of a deployment.
type InstanceSummary struct {
	Instance     domain.Instance
	Items        []domain.InstanceItem
	Subitems     map[string][]domain.InstanceSubitem // keyed by item id
	ItemStats    map[string]RollupResult             // keyed by item id
	Stats        RollupResult
	Participants []domain.Participant
}

func (e Engine) GetInstanceSummary(ctx context.Context, instanceID string) (InstanceSummary, error) {
	in, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return InstanceSummary{}, fmt.Errorf("instance %s: %w", instanceID, err)
	}
	items, err := e.Repo.ListInstanceItems(ctx, instanceID)
	if err != nil {
		return InstanceSummary{}, err
	}
	summary := InstanceSummary{
		Instance:  in,
		Items:     items,
		Subitems:  make(map[string][]domain.InstanceSubitem, len(items)),
		ItemStats: make(map[string]RollupResult, len(items)),
		Stats:     Rollup(ItemStatuses(items)),
	}
	for _, item := range items {
		subs, err := e.Repo.ListInstanceSubitems(ctx, item.ID)
		if err != nil {
			return InstanceSummary{}, err
		}
		summary.Subitems[item.ID] = subs
		summary.ItemStats[item.ID] = Rollup(SubitemStatuses(subs))
	}
	summary.Participants, err = e.Repo.ListParticipants(ctx, instanceID)
	if err != nil {
		return InstanceSummary{}, err
	}
	return summary, nil
}

// CompleteInstance closes an instance from its items. All items must be
// actioned; the resulting status is the derived rollup, never a caller
// override.
func (e Engine) CompleteInstance(ctx context.Context, instanceID, actorID string) (domain.Instance, RollupResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Instance{}, RollupResult{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetInstanceTx(ctx, tx, instanceID)
	if err != nil {
		return domain.Instance{}, RollupResult{}, fmt.Errorf("instance %s: %w", instanceID, err)
	}
	items, err := e.Repo.ListInstanceItemsTx(ctx, tx, instanceID)
	if err != nil {
		return domain.Instance{}, RollupResult{}, err
	}
	roll := Rollup(ItemStatuses(items))
	if IsInstanceTerminal(in.Status) {
		return in, roll, nil
	}
	if !roll.AllActioned || roll.Total == 0 {
		return domain.Instance{}, RollupResult{}, fmt.Errorf("%w: %d of %d items remaining",
			ErrSequencingViolation, roll.Pending+roll.InProgress, roll.Total)
	}
	in, closed, err := e.applyInstanceRollup(ctx, tx, in, roll, actorID)
	if err != nil {
		return domain.Instance{}, RollupResult{}, err
	}
	if closed {
		if err := e.Events.Append(ctx, tx, "instance.closed", in.ID, "instance", in.ID, actorID, events.EventPayload{
			"status":     in.Status,
			"percentage": roll.Percentage,
		}); err != nil {
			return domain.Instance{}, RollupResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Instance{}, RollupResult{}, err
	}
	if closed {
		e.dispatcher().OnInstanceClosed(ctx, in, roll, actorID)
	}
	return in, roll, nil
}

// IsInstanceTerminal reports whether an instance status permits no further rollup.
func IsInstanceTerminal(status string) bool {
	switch status {
	case domain.StatusCompleted, domain.StatusCompletedWithExceptions, domain.StatusFailed:
		return true
	}
	return false
}
