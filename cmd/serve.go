package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plexgraph/plexgraph/ingest"
	"github.com/plexgraph/plexgraph/server"
)

func serveCmd() *cobra.Command {
	var (
		port     int
		snapshot string
		tickMS   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout engine as a streaming HTTP server",
		Long: "Starts the engine behind an HTTP server: POST /snapshot and\n" +
			"POST /delta to feed it, GET /ws for the position stream,\n" +
			"GET /visualize.svg for the current frame and GET /metrics\n" +
			"for prometheus.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEngineConfig()
			if err != nil {
				return err
			}
			log := newLogger()

			srv, err := server.New(server.Config{
				Port:     port,
				TickRate: time.Duration(tickMS) * time.Millisecond,
			}, cfg, log)
			if err != nil {
				return err
			}

			if snapshot != "" {
				data, err := os.ReadFile(snapshot)
				if err != nil {
					return err
				}
				snap, err := ingest.NewSnapshotProcessor(nil).DecodeSnapshot(data)
				if err != nil {
					return err
				}
				srv.Engine().QueueSnapshot(snap)
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			good.Printf("serving on :%d\n", port)
			if err := srv.Start(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Listen port")
	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "Snapshot to preload")
	cmd.Flags().IntVar(&tickMS, "tick", 16, "Frame interval in milliseconds")
	return cmd
}
