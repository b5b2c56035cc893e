package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arena/internal/cli"
	"arena/internal/config"
	"arena/internal/svc"
	"arena/pkg/scheduler"
)

const shutdownTimeout = 10 * time.Second

var (
	durationMinutes float64
	rounds          int
	testRun         bool
	configPath      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arena",
		Short: "run an LLM paper-trading competition",
		RunE:  runArena,
	}
	cmd.Flags().Float64Var(&durationMinutes, "duration", 0, "stop after this many minutes (0 = unbounded)")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "stop after this many rounds (0 = unbounded)")
	cmd.Flags().BoolVar(&testRun, "test", false, "alias for --rounds 5")
	cmd.Flags().StringVar(&configPath, "f", "etc/arena.yaml", "path to the config file")
	return cmd
}

func runArena(cmd *cobra.Command, args []string) error {
	if testRun && rounds == 0 {
		rounds = 5
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("arena: load config: %w", err)
	}
	cli.LogConfigSummary(cfg)

	service, err := svc.New(cfg)
	if err != nil {
		return fmt.Errorf("arena: initialize dependencies: %w", err)
	}
	defer service.Close()

	if err := service.Scheduler.Initialize(service.ModelSpecs, service.LedgerCfg); err != nil {
		return fmt.Errorf("arena: initialize scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runDone := make(chan error, 1)
	go func() {
		runDone <- service.Scheduler.Run(ctx, scheduler.RunOptions{
			Duration:  time.Duration(durationMinutes * float64(time.Minute)),
			MaxRounds: rounds,
		})
	}()

	select {
	case err := <-runDone:
		if err != nil {
			return fmt.Errorf("arena: run: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Println("arena: shutdown signal received, waiting for the current round to finish")
		select {
		case err := <-runDone:
			if err != nil {
				return fmt.Errorf("arena: run: %w", err)
			}
			return nil
		case <-time.After(shutdownTimeout):
			service.Scheduler.Stop()
			<-runDone
			log.Println("arena: shutdown timeout exceeded, forced stop")
			return nil
		}
	}
}
