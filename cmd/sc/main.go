package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shiftcheck/internal/config"
	"shiftcheck/internal/db"
	"shiftcheck/internal/domain"
	"shiftcheck/internal/engine"
	"shiftcheck/internal/migrate"
	"shiftcheck/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:   "sc",
	Short: "Shiftcheck CLI",
	Long: `Shiftcheck tracks operational checklists deployed per date and shift.
Core concepts:
- Template: the blueprint of a checklist for a shift; importing a new
  version never changes checklists already deployed.
- Instance: one deployed run of a template for a date and shift; its items
  and subitems are snapshot copies.
- Item / Subitem: the two nesting levels of trackable work; subitems are
  worked one at a time in sort order.
- Statuses: PENDING -> IN_PROGRESS -> COMPLETED | SKIPPED | FAILED.
  Skips and failures require a reason and notify admins and managers.
- Rollup: item and instance statuses are derived from their children;
  a checklist with skips or failures closes as COMPLETED_WITH_EXCEPTIONS.
- Event log: append-only diary of every transition, view with 'sc log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SHIFTCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(instanceCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(subCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize workspace database and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetWorkspaceConfig(ctx); err == nil {
					fmt.Println("workspace already initialized")
					return nil
				} else if !errors.Is(err, repo.ErrNotFound) {
					return err
				}
				if err := r.UpsertWorkspaceConfig(ctx, config.Default()); err != nil {
					return err
				}
				fmt.Println("workspace initialized at", db.Path(viper.GetString("workspace")))
				return nil
			})
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configImportCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import workspace config from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			cfg, err := config.FromYAML(data)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.UpsertWorkspaceConfig(ctx, cfg); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage the user directory"}
	var id, name, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = uuid.New().String()
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u := domain.User{ID: id, Username: name, Role: strings.ToUpper(role)}
				if err := r.UpsertUser(ctx, u); err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	add.Flags().StringVar(&id, "id", "", "user id (generated when empty)")
	add.Flags().StringVar(&name, "name", "", "username")
	add.Flags().StringVar(&role, "role", "OPERATOR", "role (OPERATOR, SUPERVISOR, MANAGER, ADMIN)")
	_ = add.MarkFlagRequired("name")
	user.AddCommand(add)
	return user
}

func templateCmd() *cobra.Command {
	tpl := &cobra.Command{Use: "template", Short: "Manage checklist templates"}
	tpl.AddCommand(templateImportCmd())
	tpl.AddCommand(templateListCmd())
	return tpl
}

func templateImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a template from a YAML file as a new version",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			spec, err := engine.ParseTemplateSpec(data)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ImportTemplate(ctx, spec, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "template YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func templateListCmd() *cobra.Command {
	var shift string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				templates, err := r.ListTemplates(ctx, strings.ToUpper(shift))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(templates)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Shift", "Version", "Active"})
				for _, t := range templates {
					tw.AppendRow(table.Row{t.ID, t.Name, t.Shift, t.Version, t.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&shift, "shift", "", "filter by shift")
	return cmd
}

func scheduleCmd() *cobra.Command {
	sched := &cobra.Command{Use: "schedule", Short: "Manage the shift roster"}
	var date, shift, user, status string
	add := &cobra.Command{
		Use:   "add",
		Short: "Roster a user for a date and shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				s := domain.ScheduledShift{
					ID:     uuid.New().String(),
					Date:   date,
					Shift:  strings.ToUpper(shift),
					UserID: user,
					Status: strings.ToUpper(status),
				}
				if err := r.InsertScheduledShift(ctx, s); err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	add.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	add.Flags().StringVar(&shift, "shift", "", "shift name")
	add.Flags().StringVar(&user, "user", "", "user id")
	add.Flags().StringVar(&status, "status", "SCHEDULED", "status (SCHEDULED, CANCELLED)")
	_ = add.MarkFlagRequired("date")
	_ = add.MarkFlagRequired("shift")
	_ = add.MarkFlagRequired("user")
	sched.AddCommand(add)

	var listDate string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rostered shifts for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				shifts, err := r.ListScheduledShifts(ctx, listDate)
				if err != nil {
					return err
				}
				return printJSONOrTable(shifts)
			})
		},
	}
	list.Flags().StringVar(&listDate, "date", "", "date (YYYY-MM-DD)")
	_ = list.MarkFlagRequired("date")
	sched.AddCommand(list)
	return sched
}

func instanceCmd() *cobra.Command {
	inst := &cobra.Command{Use: "instance", Short: "Manage checklist instances"}
	inst.AddCommand(instanceCreateCmd())
	inst.AddCommand(instanceShowCmd())
	inst.AddCommand(instanceListCmd())
	inst.AddCommand(instanceJoinCmd())
	inst.AddCommand(instanceCompleteCmd())
	return inst
}

func instanceCreateCmd() *cobra.Command {
	var date, shift, templateID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Deploy a template for a date and shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.CreateInstance(ctx, engine.InstanceCreateOptions{
					TemplateID: templateID,
					Date:       date,
					Shift:      strings.ToUpper(shift),
					ActorID:    viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&shift, "shift", "", "shift name")
	cmd.Flags().StringVar(&templateID, "template", "", "template id (active template for shift when empty)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("shift")
	return cmd
}

func instanceShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an instance with item rollups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				summary, err := e.GetInstanceSummary(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				fmt.Printf("%s  %s %s  status=%s  %.2f%%\n",
					summary.Instance.ID, summary.Instance.Date, summary.Instance.Shift,
					summary.Instance.Status, summary.Stats.Percentage)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Subitems", "Reason"})
				for _, item := range summary.Items {
					stats := summary.ItemStats[item.ID]
					subCol := ""
					if stats.Total > 0 {
						subCol = fmt.Sprintf("%d/%d done", stats.Completed+stats.Skipped+stats.Failed, stats.Total)
					}
					tw.AppendRow(table.Row{item.ID, item.Title, item.Status, subCol, item.Reason()})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func instanceListCmd() *cobra.Command {
	var date, shift string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List instances for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				instances, err := r.ListInstancesByDate(ctx, date, strings.ToUpper(shift))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(instances)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Shift", "Status", "Created By"})
				for _, in := range instances {
					tw.AppendRow(table.Row{in.ID, in.Date, in.Shift, in.Status, in.CreatedBy})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&shift, "shift", "", "filter by shift")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func instanceJoinCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "join <id>",
		Short: "Add a participant to an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if user == "" {
					user = viper.GetString("actor-id")
				}
				p, err := e.JoinInstance(ctx, args[0], user, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (defaults to actor)")
	return cmd
}

func instanceCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Close an instance from its item rollup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, roll, err := e.CompleteInstance(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"instance": in, "rollup": roll})
			})
		},
	}
	return cmd
}

func itemCmd() *cobra.Command {
	item := &cobra.Command{Use: "item", Short: "Work checklist items"}
	item.AddCommand(itemStartCmd())
	item.AddCommand(itemSummaryCmd())
	item.AddCommand(itemCloseCmd("complete", domain.StatusCompleted))
	item.AddCommand(itemCloseCmd("skip", domain.StatusSkipped))
	item.AddCommand(itemCloseCmd("fail", domain.StatusFailed))
	return item
}

func itemStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start work on an item; opens its first subitem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.StartWork(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
}

func itemSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Show subitem progress for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				summary, err := e.GetCompletionSummary(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				fmt.Printf("%s  status=%s  can_complete=%v  %.2f%%\n",
					summary.Item.Title, summary.Item.Status, summary.CanCompleteParent, summary.Stats.Percentage)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Reason"})
				for _, s := range summary.Subitems {
					tw.AppendRow(table.Row{s.ID, s.Title, s.Status, s.Reason()})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func itemCloseCmd(verb, status string) *cobra.Command {
	var reason string
	var ackFailures bool
	cmd := &cobra.Command{
		Use:   verb + " <id>",
		Short: fmt.Sprintf("Mark an item %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CompleteItem(ctx, engine.ItemCompleteOptions{
					ItemID:              args[0],
					Status:              status,
					ActorID:             viper.GetString("actor-id"),
					Reason:              reason,
					AcknowledgeFailures: ackFailures,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	if status != domain.StatusCompleted {
		cmd.Flags().StringVar(&reason, "reason", "", "reason (required)")
		_ = cmd.MarkFlagRequired("reason")
	} else {
		cmd.Flags().BoolVar(&ackFailures, "ack-failures", false, "complete even though subitems failed")
	}
	return cmd
}

func subCmd() *cobra.Command {
	sub := &cobra.Command{Use: "sub", Short: "Work subitems"}
	sub.AddCommand(subActionCmd("start", domain.StatusInProgress))
	sub.AddCommand(subActionCmd("done", domain.StatusCompleted))
	sub.AddCommand(subActionCmd("skip", domain.StatusSkipped))
	sub.AddCommand(subActionCmd("fail", domain.StatusFailed))
	return sub
}

func subActionCmd(verb, status string) *cobra.Command {
	var reason, comment string
	cmd := &cobra.Command{
		Use:   verb + " <id>",
		Short: fmt.Sprintf("Mark a subitem %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.UpdateSubitemStatus(ctx, engine.SubitemUpdateOptions{
					SubitemID: args[0],
					Status:    status,
					ActorID:   viper.GetString("actor-id"),
					Reason:    reason,
					Comment:   comment,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	if status == domain.StatusSkipped || status == domain.StatusFailed {
		cmd.Flags().StringVar(&reason, "reason", "", "reason (required)")
		_ = cmd.MarkFlagRequired("reason")
	}
	cmd.Flags().StringVar(&comment, "comment", "", "free-form comment recorded in the event log")
	return cmd
}

func notifyCmd() *cobra.Command {
	notify := &cobra.Command{Use: "notify", Short: "View notifications"}

	var user string
	var unread bool
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListNotifications(ctx, repo.NotificationFilters{
					RecipientID: user,
					UnreadOnly:  unread,
					Limit:       limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Recipient", "Severity", "Title", "Read", "At"})
				for _, n := range items {
					tw.AppendRow(table.Row{n.ID, n.RecipientID, n.Severity, n.Title, n.IsRead, n.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&user, "user", "", "filter by recipient")
	list.Flags().BoolVar(&unread, "unread", false, "unread only")
	list.Flags().IntVar(&limit, "limit", 50, "max rows")
	notify.AddCommand(list)

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.MarkNotificationRead(ctx, args[0])
			})
		},
	}
	notify.AddCommand(read)
	return notify
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "View the event log"}
	var instanceID, evtType string
	var limit int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show latest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				evts, err := r.LatestEvents(ctx, limit, instanceID, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evts)
				}
				for i := len(evts) - 1; i >= 0; i-- {
					ev := evts[i]
					fmt.Printf("%s  %-18s %s/%s by %s  %s\n", ev.TS, ev.Type, ev.EntityKind, ev.EntityID, ev.ActorID, ev.Payload)
				}
				return nil
			})
		},
	}
	tail.Flags().StringVar(&instanceID, "instance", "", "filter by instance id")
	tail.Flags().StringVar(&evtType, "type", "", "filter by event type")
	tail.Flags().IntVar(&limit, "limit", 20, "max rows")
	logc.AddCommand(tail)
	return logc
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withRepo(ctx, func(ctx context.Context, r repo.Repo) error {
		cfg, err := r.GetWorkspaceConfig(ctx)
		if err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			cfg = config.Default()
		}
		e := engine.New(r.DB, cfg)
		return fn(ctx, e)
	})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
