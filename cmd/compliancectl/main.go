// Command compliancectl prints worklists, summaries and per-equipment due
// dates straight from the database, without a running server. It can also
// import an equipment dataset in the API's JSON format.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/config"
	"github.com/warp/physics-compliance/factory"
	"github.com/warp/physics-compliance/generic"
	"github.com/warp/physics-compliance/store/sqlite"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// systemActor matches the API's actor when none is given.
const systemActor = "SYS"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	asOf       string
	days       int
	verbose    bool
}

// env is what a subcommand needs once flags are resolved.
type env struct {
	store   *sqlite.Store
	builder *compliance.WorklistBuilder
	today   generic.Date
	window  int
	out     io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code. Usage
// errors from cobra exit 1, like any error without its own code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "Error:", err)
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func newRootCmd(out io.Writer) *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "compliancectl",
		Short:         "Inspect physics equipment compliance",
		Long:          "compliancectl reads the compliance database and prints worklists, summaries and due dates.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&flags.asOf, "as-of", "", "Evaluate as of this date (YYYY-MM-DD); default today")
	pf.IntVar(&flags.days, "days", 0, "Upcoming window in days; default from config (90)")
	pf.BoolVar(&flags.verbose, "verbose", false, "Log calculation warnings to stderr")

	var filter compliance.Filter
	worklistCmd := &cobra.Command{
		Use:   "worklist",
		Short: "Print overdue, upcoming, compliant, untested and scheduled equipment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), flags, out, func(e *env) error {
				return runWorklist(cmd.Context(), e, filter)
			})
		},
	}
	wf := worklistCmd.Flags()
	wf.StringVar(&filter.Class, "class", "", "Filter by equipment class")
	wf.StringVar(&filter.Subclass, "subclass", "", "Filter by equipment subclass")
	wf.StringVar(&filter.Facility, "facility", "", "Filter by facility")
	wf.StringVar(&filter.Search, "search", "", "Free-text search")

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print dashboard counts and the compliance rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), flags, out, func(e *env) error {
				return runSummary(cmd.Context(), e)
			})
		},
	}

	dueCmd := &cobra.Command{
		Use:   "due <equipment-id>",
		Short: "Show the next due date and per-policy breakdown for one equipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := generic.ParseEquipmentID(args[0])
			if err != nil {
				return codeError(2, "invalid equipment id %q", args[0])
			}
			return withEnv(cmd.Context(), flags, out, func(e *env) error {
				return runDue(cmd.Context(), e, id)
			})
		},
	}

	var actor string
	importCmd := &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Load an equipment dataset (JSON array) into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return codeError(2, "reading %s: %s", args[0], err)
			}
			return withEnv(cmd.Context(), flags, out, func(e *env) error {
				return runImport(cmd.Context(), e, string(raw), actor)
			})
		},
	}
	importCmd.Flags().StringVar(&actor, "actor", "", "Name recorded in the audit log; default SYS")

	root.AddCommand(worklistCmd, summaryCmd, dueCmd, importCmd)
	return root
}

func withEnv(ctx context.Context, flags globalFlags, out io.Writer, fn func(*env) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return codeError(2, "loading config: %s", err)
		}
		cfg = loaded
	}
	if flags.dbPath != "" {
		cfg.Database.Path = flags.dbPath
	}

	today := generic.Today()
	if flags.asOf != "" {
		d, err := generic.ParseDate(flags.asOf)
		if err != nil {
			return codeError(2, "invalid --as-of %q (use YYYY-MM-DD)", flags.asOf)
		}
		today = d
	}
	window := cfg.Compliance.UpcomingWindowDays
	if flags.days != 0 {
		window = compliance.NormalizeWindow(flags.days)
	}

	level := "error"
	if flags.verbose {
		level = "debug"
	}
	logger := config.NewLogger(config.LogConfig{Level: level, Format: "text"}, os.Stderr)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return codeError(1, "opening database: %s", err)
	}
	defer store.Close()

	return fn(&env{
		store:   store,
		builder: compliance.NewWorklistBuilder(logger, cfg.Compliance.ScheduleBufferDays),
		today:   today,
		window:  window,
		out:     out,
	})
}

// =============================================================================
// COMMANDS
// =============================================================================

func runWorklist(ctx context.Context, e *env, filter compliance.Filter) error {
	snap, err := compliance.LoadSnapshot(ctx, e.store, e.today, filter)
	if err != nil {
		return codeError(1, "loading equipment: %s", err)
	}
	wl := e.builder.Build(e.today, snap, e.window)

	fmt.Fprintf(e.out, "Worklist as of %s (upcoming window %d days)\n", wl.AsOf, wl.WindowDays)
	printDueSection(e.out, "Overdue", wl.Overdue)
	printDueSection(e.out, "Upcoming", wl.Upcoming)
	printDueSection(e.out, "Compliant", wl.Compliant)
	printDueSection(e.out, "No frequency", wl.NoFrequency)

	fmt.Fprintf(e.out, "\n%s (%d)\n", bold("Scheduled"), len(wl.Scheduled))
	for _, s := range wl.Scheduled {
		fmt.Fprintf(e.out, "  %-10s  #%-5d %-28s %s\n",
			s.Schedule.ScheduledDate, s.Equipment.ID, describe(s.Equipment), s.Schedule.Notes)
	}
	return nil
}

func runSummary(ctx context.Context, e *env) error {
	snap, err := compliance.LoadSnapshot(ctx, e.store, e.today, compliance.Filter{})
	if err != nil {
		return codeError(1, "loading equipment: %s", err)
	}
	s := compliance.Summarize(e.builder.Build(e.today, snap, e.window))

	fmt.Fprintf(e.out, "Summary as of %s (upcoming window %d days)\n", s.AsOf, s.WindowDays)
	fmt.Fprintf(e.out, "  %s %d\n", statusLabel(compliance.StatusOverdue), s.Overdue)
	fmt.Fprintf(e.out, "  %s %d\n", statusLabel(compliance.StatusUpcoming), s.Upcoming)
	fmt.Fprintf(e.out, "  %s %d\n", statusLabel(compliance.StatusCompliant), s.Compliant)
	fmt.Fprintf(e.out, "  %s %d\n", statusLabel(compliance.StatusNoFrequency), s.NoFrequency)
	fmt.Fprintf(e.out, "  %-14s %d\n", "scheduled", s.Scheduled)
	fmt.Fprintf(e.out, "  %-14s %s%%\n", "compliance", s.ComplianceRate.StringFixed(1))
	return nil
}

func runDue(ctx context.Context, e *env, id generic.EquipmentID) error {
	eq, err := e.store.GetEquipment(ctx, id)
	if err != nil {
		if generic.IsNotFound(err) {
			return codeError(3, "equipment %d not found", id)
		}
		return codeError(1, "loading equipment: %s", err)
	}
	tests, err := e.store.TestsForEquipment(ctx, id)
	if err != nil {
		return codeError(1, "loading tests: %s", err)
	}
	schedules, err := e.store.SchedulesForEquipment(ctx, id)
	if err != nil {
		return codeError(1, "loading schedules: %s", err)
	}

	d := e.builder.Detail(e.today, *eq, tests, schedules, e.window)
	fmt.Fprintf(e.out, "#%d %s\n", eq.ID, describe(*eq))
	fmt.Fprintf(e.out, "  status:       %s\n", statusLabel(d.Status))
	fmt.Fprintf(e.out, "  frequencies:  %s\n", orDash(compliance.JoinFrequencies(eq.AuditFrequencies)))
	fmt.Fprintf(e.out, "  last tested:  %s\n", orDash(dateString(d.LastTested)))
	fmt.Fprintf(e.out, "  next due:     %s\n", orDash(dateString(d.NextDue)))
	for _, p := range d.Policies {
		fmt.Fprintf(e.out, "    %-14s %s\n", p.Frequency, p.DueDate)
	}
	for _, s := range d.ActiveSchedules {
		fmt.Fprintf(e.out, "  scheduled:    %s %s\n", s.ScheduledDate, s.Notes)
	}
	return nil
}

func runImport(ctx context.Context, e *env, raw, actor string) error {
	records, err := factory.NewRecordFactory(true).ParseDataset(raw, e.today)
	if err != nil {
		return codeError(2, "%s", err)
	}
	initials := compliance.Initials(actor)
	if initials == "" {
		initials = systemActor
	}

	err = e.store.WithTx(ctx, func(repo compliance.Repository) error {
		for i := range records {
			if err := factory.SaveRecord(ctx, repo, &records[i], initials); err != nil {
				return fmt.Errorf("equipment[%d]: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		if generic.IsClientError(err) {
			return codeError(2, "%s", err)
		}
		return codeError(1, "saving dataset: %s", err)
	}

	fmt.Fprintf(e.out, "Imported %d equipment as %s\n", len(records), initials)
	for _, rec := range records {
		fmt.Fprintf(e.out, "  #%-5d %-28s %d tests, %d schedules\n",
			rec.Equipment.ID, describe(rec.Equipment), len(rec.Tests), len(rec.Schedules))
	}
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// =============================================================================
// OUTPUT
// =============================================================================

func printDueSection(w io.Writer, title string, entries []compliance.DueEntry) {
	fmt.Fprintf(w, "\n%s (%d)\n", bold(title), len(entries))
	for _, e := range entries {
		due := "-"
		days := ""
		if e.DueDate != nil {
			due = e.DueDate.String()
			days = fmt.Sprintf("%+dd", e.DaysUntilDue)
		}
		fmt.Fprintf(w, "  %s #%-5d %-28s due %-10s %6s  last %s\n",
			statusLabel(e.Status), e.Equipment.ID, describe(e.Equipment), due, days,
			orDash(dateString(e.LastTested)))
	}
}

func statusLabel(s compliance.Status) string {
	label := fmt.Sprintf("%-14s", strings.ReplaceAll(string(s), "_", " "))
	switch s {
	case compliance.StatusOverdue:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case compliance.StatusUpcoming:
		return color.New(color.FgYellow).Sprint(label)
	case compliance.StatusCompliant:
		return color.New(color.FgGreen).Sprint(label)
	case compliance.StatusRetired:
		return color.New(color.FgHiBlack).Sprint(label)
	default:
		return color.New(color.FgCyan).Sprint(label)
	}
}

func bold(s string) string { return color.New(color.Bold).Sprint(s) }

func describe(eq compliance.Equipment) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{eq.Class, eq.Model, eq.Room} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return truncate(strings.Join(parts, " / "), 28)
}

// truncate shortens s to at most width runes, marking the cut with "~".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "~"
}

func dateString(d *generic.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
