package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"shiftcheck/internal/config"
	"shiftcheck/internal/domain"
	"shiftcheck/internal/repo"
)

// Dispatcher broadcasts notifications to admin and manager users when a
// node lands in an exceptional terminal state. It runs strictly after the
// owning transaction commits: delivery failure is logged and never
// propagated back into the transition.
type Dispatcher struct {
	Repo   repo.Repo
	Config *config.Config
	Now    func() time.Time
	Logger *log.Logger
}

// TransitionNotice describes a committed exceptional status change.
type TransitionNotice struct {
	NodeID    string
	NodeKind  string // "item" or "subitem"
	NodeTitle string
	ToStatus  string
	ActorID   string
	Reason    string
	Instance  domain.Instance
}

func (d Dispatcher) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

func (d Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Dispatcher) audienceRoles() []string {
	if d.Config != nil && len(d.Config.Notify.Roles) > 0 {
		return d.Config.Notify.Roles
	}
	return []string{"ADMIN", "MANAGER"}
}

// OnTransition fires notifications for a SKIPPED or FAILED node. Returns
// the number of notifications actually written; redelivery for the same
// (node, status, recipient) is absorbed by the persistence dedupe key.
func (d Dispatcher) OnTransition(ctx context.Context, n TransitionNotice) int {
	var severity, title string
	switch n.ToStatus {
	case domain.StatusFailed:
		severity = domain.SeverityCritical
		title = fmt.Sprintf("%s failed: %s", n.NodeKind, n.NodeTitle)
	case domain.StatusSkipped:
		severity = domain.SeverityNormal
		title = fmt.Sprintf("%s skipped: %s", n.NodeKind, n.NodeTitle)
	default:
		return 0
	}
	message := fmt.Sprintf("%s %q was marked %s by %s on the %s %s checklist. Reason: %s",
		n.NodeKind, n.NodeTitle, n.ToStatus, n.ActorID, n.Instance.Date, n.Instance.Shift, n.Reason)
	return d.broadcast(ctx, n.NodeID, n.ToStatus, severity, title, message)
}

// OnInstanceClosed fires a standard notification when an instance reaches
// a terminal rollup state.
func (d Dispatcher) OnInstanceClosed(ctx context.Context, in domain.Instance, stats RollupResult, actorID string) int {
	title := fmt.Sprintf("checklist %s: %s %s", in.Status, in.Date, in.Shift)
	message := fmt.Sprintf("Checklist for %s %s closed as %s by %s (%.2f%% completed, %d skipped, %d failed)",
		in.Date, in.Shift, in.Status, actorID, stats.Percentage, stats.Skipped, stats.Failed)
	return d.broadcast(ctx, in.ID, in.Status, domain.SeverityNormal, title, message)
}

func (d Dispatcher) broadcast(ctx context.Context, nodeID, status, severity, title, message string) int {
	audience, err := d.Repo.ListUsersByRoles(ctx, d.audienceRoles())
	if err != nil {
		d.logger().Printf("WARNING: notification audience lookup failed for %s %s: %v", nodeID, status, err)
		return 0
	}
	dispatched := 0
	for _, user := range audience {
		n := domain.Notification{
			ID:          uuid.New().String(),
			RecipientID: user.ID,
			NodeID:      nodeID,
			NodeStatus:  status,
			Severity:    severity,
			Title:       title,
			Message:     message,
			CreatedAt:   d.now().UTC().Format(time.RFC3339),
		}
		written, err := d.insertWithRetry(ctx, n)
		if err != nil {
			d.logger().Printf("WARNING: notification delivery failed for %s %s to %s: %v", nodeID, status, user.ID, err)
			continue
		}
		if written {
			dispatched++
		}
	}
	return dispatched
}

func (d Dispatcher) insertWithRetry(ctx context.Context, n domain.Notification) (bool, error) {
	var written bool
	op := func() error {
		var err error
		written, err = d.Repo.InsertNotification(ctx, n)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return false, err
	}
	return written, nil
}
