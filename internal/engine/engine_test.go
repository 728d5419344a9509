package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shiftcheck/internal/config"
	"shiftcheck/internal/db"
	"shiftcheck/internal/domain"
	"shiftcheck/internal/engine"
	"shiftcheck/internal/migrate"
	"shiftcheck/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func seedTemplate(t *testing.T, env testEnv) domain.Template {
	t.Helper()
	spec := engine.TemplateSpec{
		Name:  "Morning walkdown",
		Shift: "MORNING",
		Items: []engine.TemplateItemSpec{
			{Title: "Pump room", Subitems: []engine.TemplateSubitemSpec{
				{Title: "Check pressure gauge"},
				{Title: "Inspect seals"},
				{Title: "Log readings"},
			}},
			{Title: "Sign-off", Subitems: []engine.TemplateSubitemSpec{
				{Title: "Supervisor signature"},
			}},
		},
	}
	tpl, err := env.Engine.ImportTemplate(env.Ctx, spec, "tester")
	if err != nil {
		t.Fatalf("import template: %v", err)
	}
	return tpl
}

func seedUser(t *testing.T, env testEnv, id, role string) {
	t.Helper()
	if err := env.Engine.Repo.UpsertUser(env.Ctx, domain.User{ID: id, Username: id, Role: role}); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func createInstance(t *testing.T, env testEnv, tpl domain.Template) domain.Instance {
	t.Helper()
	in, err := env.Engine.CreateInstance(env.Ctx, engine.InstanceCreateOptions{
		TemplateID: tpl.ID,
		Date:       "2026-03-02",
		Shift:      "MORNING",
		ActorID:    "tester",
	})
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	return in
}

// subitemsOf returns the subitems of the item with the given title, in
// working order.
func subitemsOf(t *testing.T, env testEnv, instanceID, itemTitle string) (domain.InstanceItem, []domain.InstanceSubitem) {
	t.Helper()
	summary, err := env.Engine.GetInstanceSummary(env.Ctx, instanceID)
	if err != nil {
		t.Fatalf("instance summary: %v", err)
	}
	for _, item := range summary.Items {
		if item.Title == itemTitle {
			return item, summary.Subitems[item.ID]
		}
	}
	t.Fatalf("item %q not found", itemTitle)
	return domain.InstanceItem{}, nil
}

func actionSubitem(t *testing.T, env testEnv, subID, status, reason string) engine.SubitemUpdateResult {
	t.Helper()
	res, err := env.Engine.UpdateSubitemStatus(env.Ctx, engine.SubitemUpdateOptions{
		SubitemID: subID, Status: status, ActorID: "tester", Reason: reason,
	})
	if err != nil {
		t.Fatalf("subitem %s -> %s: %v", subID, status, err)
	}
	return res
}

func TestCreateInstanceSnapshotsTemplate(t *testing.T) {
	env := newTestEnv(t)
	tpl := seedTemplate(t, env)
	in := createInstance(t, env, tpl)

	if in.Status != "PENDING" {
		t.Fatalf("new instance status: %s", in.Status)
	}
	if in.ShiftStart != "2026-03-02T06:00:00Z" || in.ShiftEnd != "2026-03-02T14:00:00Z" {
		t.Fatalf("shift window: %s .. %s", in.ShiftStart, in.ShiftEnd)
	}
	summary, err := env.Engine.GetInstanceSummary(env.Ctx, in.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Items) != 2 {
		t.Fatalf("want 2 items, got %d", len(summary.Items))
	}
	_, subs := subitemsOf(t, env, in.ID, "Pump room")
	if len(subs) != 3 {
		t.Fatalf("want 3 subitems, got %d", len(subs))
	}
	for _, s := range subs {
		if s.Status != "PENDING" {
			t.Fatalf("snapshot subitem status: %s", s.Status)
		}
	}
}

func TestCreateInstanceIdempotent(t *testing.T) {
	env := newTestEnv(t)
	tpl := seedTemplate(t, env)
	first := createInstance(t, env, tpl)
	second := createInstance(t, env, tpl)
	if first.ID != second.ID {
		t.Fatalf("same (template, date, shift) should return the existing instance: %s vs %s", first.ID, second.ID)
	}
	list, err := env.Engine.Repo.ListInstancesByDate(env.Ctx, "2026-03-02", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("want 1 instance, got %d", len(list))
	}
}

func TestCreateInstanceRejectsUnknownShift(t *testing.T) {
	env := newTestEnv(t)
	tpl := seedTemplate(t, env)
	_, err := env.Engine.CreateInstance(env.Ctx, engine.InstanceCreateOptions{
		TemplateID: tpl.ID, Date: "2026-03-02", Shift: "GRAVEYARD", ActorID: "tester",
	})
	if !errors.Is(err, engine.ErrInvalidShift) {
		t.Fatalf("want ErrInvalidShift, got %v", err)
	}
}

func TestTemplateVersioning(t *testing.T) {
	env := newTestEnv(t)
	v1 := seedTemplate(t, env)
	v2 := seedTemplate(t, env)
	if v1.Version != 1 || v2.Version != 2 {
		t.Fatalf("versions: %d, %d", v1.Version, v2.Version)
	}
	active, err := env.Engine.Repo.ActiveTemplateForShift(env.Ctx, "MORNING")
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != v2.ID {
		t.Fatalf("active template should be v2")
	}
}

func TestTemplateEditsNeverReachDeployedInstances(t *testing.T) {
	env := newTestEnv(t)
	v1 := seedTemplate(t, env)
	in := createInstance(t, env, v1)

	spec := engine.TemplateSpec{
		Name:  "Morning walkdown v2",
		Shift: "MORNING",
		Items: []engine.TemplateItemSpec{
			{Title: "Completely different item", Subitems: []engine.TemplateSubitemSpec{{Title: "Other work"}}},
		},
	}
	if _, err := env.Engine.ImportTemplate(env.Ctx, spec, "tester"); err != nil {
		t.Fatal(err)
	}

	summary, err := env.Engine.GetInstanceSummary(env.Ctx, in.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Items) != 2 || summary.Items[0].Title != "Pump room" {
		t.Fatalf("deployed snapshot changed: %+v", summary.Items)
	}
}

func TestStartWorkOpensFirstSubitem(t *testing.T) {
	env := newTestEnv(t)
	in := createInstance(t, env, seedTemplate(t, env))
	item, _ := subitemsOf(t, env, in.ID, "Pump room")

	res, err := env.Engine.StartWork(env.Ctx, item.ID, "tester")
	if err != nil {
		t.Fatalf("start work: %v", err)
	}
	if res.Item.Status != "IN_PROGRESS" {
		t.Fatalf("item status: %s", res.Item.Status)
	}
	if res.NextSubitem == nil || res.NextSubitem.Title != "Check pressure gauge" || res.NextSubitem.Status != "IN_PROGRESS" {
		t.Fatalf("first subitem should be opened: %+v", res.NextSubitem)
	}

	// The instance follows the item into IN_PROGRESS.
	got, err := env.Engine.Repo.GetInstance(env.Ctx, in.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "IN_PROGRESS" || got.StartedAt == nil {
		t.Fatalf("instance not promoted: %+v", got)
	}

	// Starting again is a no-op that reports current state.
	again, err := env.Engine.StartWork(env.Ctx, item.ID, "tester")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if again.NextSubitem == nil || again.NextSubitem.ID != res.NextSubitem.ID {
		t.Fatalf("restart should report same next subitem")
	}
}

func TestChecklistHappyPath(t *testing.T) {
	env := newTestEnv(t)
	in := createInstance(t, env, seedTemplate(t, env))

	item, subs := subitemsOf(t, env, in.ID, "Pump room")
	if _, err := env.Engine.StartWork(env.Ctx, item.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	// First subitem was opened by StartWork; work through all three.
	res := actionSubitem(t, env, subs[0].ID, "COMPLETED", "")
	if res.NextSubitem == nil || res.NextSubitem.ID != subs[1].ID {
		t.Fatalf("sequencer should hand out subitem 2, got %+v", res.NextSubitem)
	}
	actionSubitem(t, env, subs[1].ID, "IN_PROGRESS", "")
	actionSubitem(t, env, subs[1].ID, "COMPLETED", "")
	actionSubitem(t, env, subs[2].ID, "IN_PROGRESS", "")
	res = actionSubitem(t, env, subs[2].ID, "COMPLETED", "")
	if !res.AllSubitemsDone || res.NextSubitem != nil {
		t.Fatalf("sequence should be exhausted: %+v", res)
	}
	if res.Stats.Percentage != 100.0 {
		t.Fatalf("percentage: %v", res.Stats.Percentage)
	}

	closed, err := env.Engine.CompleteItem(env.Ctx, engine.ItemCompleteOptions{
		ItemID: item.ID, Status: "COMPLETED", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("complete item: %v", err)
	}
	if closed.Item.Status != "COMPLETED" || closed.Item.CompletedAt == nil {
		t.Fatalf("item close: %+v", closed.Item)
	}
	if closed.Instance.Status != "IN_PROGRESS" {
		t.Fatalf("instance should still be open: %s", closed.Instance.Status)
	}

	signoff, subs2 := subitemsOf(t, env, in.ID, "Sign-off")
	if _, err := env.Engine.StartWork(env.Ctx, signoff.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	actionSubitem(t, env, subs2[0].ID, "COMPLETED", "")
	final, err := env.Engine.CompleteItem(env.Ctx, engine.ItemCompleteOptions{
		ItemID: signoff.ID, Status: "COMPLETED", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if final.Instance.Status != "COMPLETED" || final.Instance.CompletedAt == nil {
		t.Fatalf("instance close: %+v", final.Instance)
	}
	if final.InstanceRollup.Percentage != 100.0 {
		t.Fatalf("instance percentage: %v", final.InstanceRollup.Percentage)
	}
}

func TestSubitemReasonRequired(t *testing.T) {
	env := newTestEnv(t)
	in := createInstance(t, env, seedTemplate(t, env))
	_, subs := subitemsOf(t, env, in.ID, "Pump room")

	_, err := env.Engine.UpdateSubitemStatus(env.Ctx, engine.SubitemUpdateOptions{
		SubitemID: subs[0].ID, Status: "SKIPPED", ActorID: "tester",
	})
	if !errors.Is(err, engine.ErrMissingReason) {
		t.Fatalf("want ErrMissingReason, got %v", err)
	}
	res := actionSubitem(t, env, subs[0].ID, "SKIPPED", "gauge removed for calibration")
	if res.Subitem.Reason() != "gauge removed for calibration" {
		t.Fatalf("reason not recorded: %+v", res.Subitem)
	}
}

func TestItemCompletionGates(t *testing.T) {
	env := newTestEnv(t)
	in := createInstance(t, env, seedTemplate(t, env))
	item, subs := subitemsOf(t, env, in.ID, "Pump room")

	if _, err := env.Engine.StartWork(env.Ctx, item.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	actionSubitem(t, env, subs[0].ID, "COMPLETED", "")

	// Two subitems still pending.
	_, err := env.Engine.CompleteItem(env.Ctx, engine.ItemCompleteOptions{
		ItemID: item.ID, Status: "COMPLETED", ActorID: "tester",
	})
	if !errors.Is(err, engine.ErrSequencingViolation) {
		t.Fatalf("want ErrSequencingViolation, got %v", err)
	}

	actionSubitem(t, env, subs[1].ID, "SKIPPED", "gauge removed")
	actionSubitem(t, env, subs[2].ID, "FAILED", "seal leaking")

	// A failed subitem blocks completion unless explicitly acknowledged.
	_, err = env.Engine.CompleteItem(env.Ctx, engine.ItemCompleteOptions{
		ItemID: item.ID, Status: "COMPLETED", ActorID: "tester",
	})
	if !errors.Is(err, engine.ErrFailedSubitems) {
		t.Fatalf("want ErrFailedSubitems, got %v", err)
	}
	res, err := env.Engine.CompleteItem(env.Ctx, engine.ItemCompleteOptions{
		ItemID: item.ID, Status: "COMPLETED", ActorID: "tester", AcknowledgeFailures: true,
	})
	if err != nil {
		t.Fatalf("acknowledged completion: %v", err)
	}
	if res.Item.Status != "COMPLETED" {
		t.Fatalf("item status: %s", res.Item.Status)
	}
}

func TestInstanceClosesWithExceptions(t *testing.T) {
	env := newTestEnv(t)
	in := createInstance(t, env, seedTemplate(t, env))

	item, subs := subitemsOf(t, env, in.ID, "Pump room")
	if _, err := env.Engine.StartWork(env.Ctx, item.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	actionSubitem(t, env, subs[0].ID, "COMPLETED", "")
	actionSubitem(t, env, subs[1].ID, "IN_PROGRESS", "")
	actionSubitem(t, env, subs[1].ID, "COMPLETED", "")
	actionSubitem(t, env, subs[2].ID, "IN_PROGRESS", "")
	actionSubitem(t, env, subs[2].ID, "COMPLETED", "")
	if _, err := env.Engine.CompleteItem(env.Ctx, engine.ItemCompleteOptions{
		ItemID: item.ID, Status: "COMPLETED", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}

	signoff, _ := subitemsOf(t, env, in.ID, "Sign-off")
	res, err := env.Engine.CompleteItem(env.Ctx, engine.ItemCompleteOptions{
		ItemID: signoff.ID, Status: "SKIPPED", ActorID: "tester", Reason: "supervisor off site",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Instance.Status != "COMPLETED_WITH_EXCEPTIONS" {
		t.Fatalf("instance status: %s", res.Instance.Status)
	}
	if res.Instance.CompletedAt == nil {
		t.Fatalf("closed instance needs a completion timestamp")
	}
}

func TestCompleteInstanceRequiresAllItemsActioned(t *testing.T) {
	env := newTestEnv(t)
	in := createInstance(t, env, seedTemplate(t, env))
	_, _, err := env.Engine.CompleteInstance(env.Ctx, in.ID, "tester")
	if !errors.Is(err, engine.ErrSequencingViolation) {
		t.Fatalf("want ErrSequencingViolation, got %v", err)
	}
}

func TestNotificationFanoutAndDedupe(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env, "alice", "ADMIN")
	seedUser(t, env, "bob", "MANAGER")
	seedUser(t, env, "carol", "OPERATOR")

	in := createInstance(t, env, seedTemplate(t, env))
	_, subs := subitemsOf(t, env, in.ID, "Pump room")

	res := actionSubitem(t, env, subs[0].ID, "FAILED", "valve stuck")
	if res.Dispatched != 2 {
		t.Fatalf("want fanout to admin and manager, dispatched %d", res.Dispatched)
	}

	notes, err := env.Engine.Repo.ListNotifications(env.Ctx, repo.NotificationFilters{})
	if err != nil {
		t.Fatal(err)
	}
	got := 0
	for _, n := range notes {
		if n.NodeID != subs[0].ID {
			continue
		}
		got++
		if n.Severity != "CRITICAL" {
			t.Fatalf("failure notification severity: %s", n.Severity)
		}
		if n.RecipientID == "carol" {
			t.Fatalf("operators are not in the audience")
		}
	}
	if got != 2 {
		t.Fatalf("want 2 notification rows, got %d", got)
	}

	// Retrying the identical failure is a no-op and must not re-notify.
	res = actionSubitem(t, env, subs[0].ID, "FAILED", "valve stuck")
	if res.Dispatched != 0 {
		t.Fatalf("retry dispatched %d notifications", res.Dispatched)
	}
	notes, err = env.Engine.Repo.ListNotifications(env.Ctx, repo.NotificationFilters{})
	if err != nil {
		t.Fatal(err)
	}
	got = 0
	for _, n := range notes {
		if n.NodeID == subs[0].ID {
			got++
		}
	}
	if got != 2 {
		t.Fatalf("retry duplicated notifications: %d rows", got)
	}
}

func TestNotificationReadFlow(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env, "alice", "ADMIN")
	in := createInstance(t, env, seedTemplate(t, env))
	_, subs := subitemsOf(t, env, in.ID, "Pump room")
	actionSubitem(t, env, subs[0].ID, "SKIPPED", "not needed")

	notes, err := env.Engine.Repo.ListNotifications(env.Ctx, repo.NotificationFilters{RecipientID: "alice", UnreadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Severity != "NORMAL" {
		t.Fatalf("unread notifications: %+v", notes)
	}
	if err := env.Engine.Repo.MarkNotificationRead(env.Ctx, notes[0].ID); err != nil {
		t.Fatal(err)
	}
	count, err := env.Engine.Repo.CountUnreadNotifications(env.Ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("unread count after read: %d", count)
	}
	if err := env.Engine.Repo.MarkNotificationRead(env.Ctx, "no-such-id"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestParticipantsFromRoster(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env, "dave", "OPERATOR")
	seedUser(t, env, "erin", "OPERATOR")
	for _, s := range []domain.ScheduledShift{
		{ID: "s1", Date: "2026-03-02", Shift: "MORNING", UserID: "dave", Status: "SCHEDULED"},
		{ID: "s2", Date: "2026-03-02", Shift: "MORNING", UserID: "erin", Status: "CANCELLED"},
	} {
		if err := env.Engine.Repo.InsertScheduledShift(env.Ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	in := createInstance(t, env, seedTemplate(t, env))
	summary, err := env.Engine.GetInstanceSummary(env.Ctx, in.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Participants) != 1 || summary.Participants[0].UserID != "dave" {
		t.Fatalf("participants: %+v", summary.Participants)
	}

	// Late joiners are welcome, repeated joins are not an error.
	if _, err := env.Engine.JoinInstance(env.Ctx, in.ID, "erin", "erin"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.JoinInstance(env.Ctx, in.ID, "erin", "erin"); err != nil {
		t.Fatal(err)
	}
	summary, err = env.Engine.GetInstanceSummary(env.Ctx, in.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Participants) != 2 {
		t.Fatalf("participants after join: %+v", summary.Participants)
	}
}

func TestEventLogRecordsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	in := createInstance(t, env, seedTemplate(t, env))
	item, subs := subitemsOf(t, env, in.ID, "Pump room")
	if _, err := env.Engine.StartWork(env.Ctx, item.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	actionSubitem(t, env, subs[0].ID, "FAILED", "valve stuck")

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, in.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	types := map[string]bool{}
	for _, ev := range evts {
		types[ev.Type] = true
	}
	for _, want := range []string{"instance.created", "item.started", "subitem.updated"} {
		if !types[want] {
			t.Fatalf("missing event %s in %v", want, types)
		}
	}
}
