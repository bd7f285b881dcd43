package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/glpdispatch/infra/logger"
	"github.com/kilianp07/glpdispatch/pkg/export"
)

var (
	intervals int
	outPath   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Plan a number of intervals offline and export the packets",
	RunE:  simulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&intervals, "intervals", "n", 12, "number of intervals to plan")
	simulateCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (.csv or .json), stdout when empty")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	if intervals <= 0 {
		return fmt.Errorf("intervals must be positive, got %d", intervals)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	packets, err := svc.Simulate(ctx, intervals)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if strings.EqualFold(filepath.Ext(outPath), ".csv") {
		err = export.WriteCSV(w, packets)
	} else {
		err = export.WriteJSON(w, packets)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	logger.New("simulate").Infof("%d packets planned", len(packets))
	return nil
}
