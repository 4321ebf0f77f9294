package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"classhud/internal/app"
	"classhud/internal/config"
	"classhud/internal/export"
	"classhud/internal/schedule"
	"classhud/internal/storage"
	"classhud/internal/timetable"
	logx "classhud/pkg/logx"
)

// openTimetable loads config and timetable for one-shot commands.
func openTimetable(ctx context.Context, cfgPath string) (*config.Config, *schedule.Manager, func() error, error) {
	cfg, err := app.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	sched, closeFn, err := app.OpenSchedule(cfg, logx.NewConsole("warn"))
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := sched.Load(ctx); err != nil {
		_ = closeFn()
		return nil, nil, nil, err
	}
	return cfg, sched, closeFn, nil
}

func newShowCmd(cfgPath *string) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "show [day]",
		Short: "Print a day's periods once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sched, closeFn, err := openTimetable(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer closeFn()

			loc, err := config.ParseLocation("tracker.timezone", cfg.Tracker.Timezone)
			if err != nil {
				return err
			}
			now := time.Now().In(loc)
			if at != "" {
				c, err := timetable.ParseClock(at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = c.On(now)
			}
			day := ""
			if len(args) == 1 {
				day = args[0]
			}
			return printDay(cmd.OutOrStdout(), sched.Current(), day, now)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at HH:MM today instead of now")
	return cmd
}

func printDay(w io.Writer, tt *timetable.Timetable, day string, now time.Time) error {
	name := day
	if name == "" {
		name = timetable.WeekdayName(now.Weekday())
	}
	fmt.Fprintf(w, "%s  %s\n", name, now.Format("2006-01-02 15:04"))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	n := 0
	for v, err := range tt.Daily(day, now) {
		if errors.Is(err, timetable.ErrUnknownDay) {
			return err
		}
		n++
		cls := v.Classname
		if err != nil {
			cls = "(" + err.Error() + ")"
		}
		if v.Span == nil {
			fmt.Fprintf(tw, "%d\t%s\t%s\t\t\n", v.Index+1, v.Label, cls)
			continue
		}
		var status string
		switch v.State {
		case timetable.StateCurrent:
			status = fmt.Sprintf("%.0f%% left, %s to go", v.Fraction*100, v.Remaining().Round(time.Second))
		case timetable.StateUpcoming:
			status = "starts " + humanize.RelTime(now, v.Span.Begin, "from now", "ago")
		default:
			status = "done"
		}
		fmt.Fprintf(tw, "%d\t%s-%s\t%s\t%s\t\n", v.Index+1, v.Span.Begin.Format("15:04"), v.Span.End.Format("15:04"), cls, status)
	}
	if n == 0 {
		fmt.Fprintln(tw, "no classes")
	}
	return tw.Flush()
}

func newValidateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and the timetable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sched, closeFn, err := openTimetable(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", english.Plural(sched.Current().PeriodCount(), "period", ""))
			return nil
		},
	}
}

func newInitCmd(cfgPath *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the timetable if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.NewManager(*cfgPath).WriteDefault(force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", *cfgPath)

			cfg := config.Default()
			sched, closeFn, err := app.OpenSchedule(cfg, logx.NewConsole("warn"))
			if err != nil {
				return err
			}
			defer closeFn()
			if _, err := sched.Load(cmd.Context()); err != nil {
				return err
			}
			abs, _ := filepath.Abs(cfg.Timetable.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "timetable at %s\n", abs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func newResetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Back up the stored timetable and start over with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			sched, closeFn, err := app.OpenSchedule(cfg, logx.NewConsole("warn"))
			if err != nil {
				return err
			}
			defer closeFn()
			backup, err := sched.Reset(cmd.Context())
			if err != nil {
				return err
			}
			if backup != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "old timetable kept at %s\n", backup)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "timetable reset to defaults")
			return nil
		},
	}
}

func newRevisionsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "revisions",
		Short: "List saved timetable revisions (sqlite driver)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			sched, closeFn, err := app.OpenSchedule(cfg, logx.NewConsole("warn"))
			if err != nil {
				return err
			}
			defer closeFn()
			revs, err := sched.Revisions(cmd.Context())
			if err != nil {
				return fmt.Errorf("timetable.driver %s: %w", cfg.Timetable.Driver, err)
			}
			return printRevisions(cmd.OutOrStdout(), revs, time.Now())
		},
	}
}

func printRevisions(w io.Writer, revs []storage.Revision, now time.Time) error {
	if len(revs) == 0 {
		_, err := fmt.Fprintln(w, "no revisions")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, r := range revs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", i+1, r.ID,
			humanize.RelTime(r.SavedAt, now, "ago", "from now"), humanize.Bytes(uint64(r.Size)))
	}
	return tw.Flush()
}

func newExportCmd(cfgPath *string) *cobra.Command {
	var out, week string
	cmd := &cobra.Command{
		Use:       "export ics|xlsx",
		Short:     "Export the weekly timetable",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"ics", "xlsx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sched, closeFn, err := openTimetable(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer closeFn()

			loc, err := config.ParseLocation("tracker.timezone", cfg.Tracker.Timezone)
			if err != nil {
				return err
			}
			weekOf := time.Now().In(loc)
			if week != "" {
				if weekOf, err = time.ParseInLocation("2006-01-02", week, loc); err != nil {
					return fmt.Errorf("--week: %w", err)
				}
			}
			if out == "" {
				out = "timetable." + args[0]
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			switch args[0] {
			case "ics":
				var n int
				n, err = export.WriteICS(f, sched.Current(), weekOf, loc, export.ICSOptions{Name: cfg.HUD.Title})
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", out, english.Plural(n, "event", ""))
				}
			case "xlsx":
				err = export.WriteXLSX(f, sched.Current())
				if err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), out)
				}
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default timetable.<format>)")
	cmd.Flags().StringVar(&week, "week", "", "first week of the recurrence, any date in it (YYYY-MM-DD)")
	return cmd
}

