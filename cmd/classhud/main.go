package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"classhud/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		reset   bool
	)
	root := &cobra.Command{
		Use:           "classhud",
		Short:         "Class timetable HUD with live period progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHUD(cmd.Context(), cfgPath, reset)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./classhud.json", "path to config (json or yaml)")
	root.Flags().BoolVar(&reset, "reset", false, "back up an invalid timetable and start with defaults")

	run := &cobra.Command{
		Use:   "run",
		Short: "Show the HUD (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHUD(cmd.Context(), cfgPath, reset)
		},
	}
	run.Flags().BoolVar(&reset, "reset", false, "back up an invalid timetable and start with defaults")

	daemon := &cobra.Command{
		Use:   "daemon",
		Short: "Run the tracker and announcer without the HUD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), cfgPath, reset)
		},
	}
	daemon.Flags().BoolVar(&reset, "reset", false, "back up an invalid timetable and start with defaults")

	root.AddCommand(run, daemon,
		newShowCmd(&cfgPath),
		newValidateCmd(&cfgPath),
		newInitCmd(&cfgPath),
		newResetCmd(&cfgPath),
		newRevisionsCmd(&cfgPath),
		newExportCmd(&cfgPath),
	)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runHUD(parent context.Context, cfgPath string, reset bool) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	a, err := app.NewApp(cfgPath, app.Options{ResetBroken: reset})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	// The HUD ends when the user quits, on a signal, or when a background
	// component fails.
	hudCtx, hudCancel := context.WithCancel(ctx)
	defer hudCancel()
	go func() {
		select {
		case <-a.Done():
			hudCancel()
		case <-hudCtx.Done():
		}
	}()
	hudErr := a.RunHUD(hudCtx)

	reason := app.StopHUDQuit
	switch {
	case ctx.Err() != nil:
		reason = app.StopSignal
	case a.Err() != nil:
		reason = app.StopFatalError
	}
	stopErr := a.Stop(context.Background(), reason)
	if hudErr != nil {
		return hudErr
	}
	return stopErr
}

func runDaemon(parent context.Context, cfgPath string, reset bool) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	a, err := app.NewApp(cfgPath, app.Options{Headless: true, ResetBroken: reset})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}
	return a.Stop(context.Background(), reason)
}
