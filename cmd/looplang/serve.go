package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/looplang/pkg/api"
	grpcapi "github.com/lemonberrylabs/looplang/pkg/api/grpc"
	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/runner"
	"github.com/lemonberrylabs/looplang/pkg/store"
	"github.com/lemonberrylabs/looplang/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and gRPC APIs and the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, opts)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("programs-dir", "", "Directory of .loop files to load at startup (env PROGRAMS_DIR)")
	cmd.Flags().Duration("timeout", runner.DefaultTimeout, "maximum duration of one run")
	cmd.Flags().Int("max-depth", runner.DefaultMaxCallDepth, "maximum function call depth (0 for unbounded)")
	return cmd
}

func serve(cmd *cobra.Command, opts *rootOptions) error {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = strconv.Itoa(v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = strconv.Itoa(v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	programsDir := os.Getenv("PROGRAMS_DIR")
	if v, _ := cmd.Flags().GetString("programs-dir"); v != "" {
		programsDir = v
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	s := store.New()
	r := runner.New(s, runner.Config{Timeout: timeout, MaxCallDepth: maxDepth})
	server := api.New(r)

	if programsDir != "" {
		d := parser.Dialect{Sugar: opts.sugar, Enhanced: opts.enhanced}
		if _, err := server.LoadDir(programsDir, d); err != nil {
			log.Printf("Warning: failed to load programs directory: %v", err)
		}
	}

	web.New(s).Register(server.App())

	grpcServer := grpcapi.New(r)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown once the command context is cancelled by a signal.
	go func() {
		<-cmd.Context().Done()
		log.Println("Shutting down...")
		grpcServer.GracefulStop()
		if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("looplang listening on %s (timeout=%s, max-depth=%d)", addr, timeout, maxDepth)
	return server.Listen(addr)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
