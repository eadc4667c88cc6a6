package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/hglc/internal/httpapi"
	"github.com/ppiankov/hglc/internal/rpc"
)

var (
	servePort     int
	serveHTTPAddr string
	serveStrict   bool
	serveLedger   string
	serveAuditLog string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "gRPC listen port (default grpc_port from config)")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "HTTP listen address (default http_addr from config, \"off\" disables)")
	serveCmd.Flags().BoolVar(&serveStrict, "strict", false, "Reject repeated, embedded or out-of-order markers")
	serveCmd.Flags().StringVar(&serveLedger, "ledger", "", "Ledger database path (overrides config)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Audit log path (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC and HTTP compile servers",
	Long:  "Runs hglc.v1.SentenceService over gRPC and the JSON API (with /metrics)\nover HTTP. Every compile is recorded in the ledger and audit log.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, hash := loadConfig()
	if servePort == 0 {
		servePort = cfg.GRPCPort
	}
	httpAddr := firstNonEmpty(serveHTTPAddr, cfg.HTTPAddr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, closeEngine, err := openEngine(cfg, hash, engineOptions{
		strict:   serveStrict,
		record:   true,
		ledger:   serveLedger,
		auditLog: serveAuditLog,
		registry: reg,
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer closeEngine()

	logger := log.New(os.Stderr, "hglc: ", log.LstdFlags)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", servePort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", servePort, err)
	}
	grpcSrv := rpc.New(svc, rpc.Config{Port: servePort})

	var httpSrv *http.Server
	if httpAddr != "" && httpAddr != "off" {
		httpSrv = httpapi.NewServer(httpAddr, httpapi.New(svc, logger, reg).Routes())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcSrv.ServeOn(lis)
	})
	if httpSrv != nil {
		g.Go(func() error {
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down hglc servers...")
		grpcSrv.GracefulStop()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	fmt.Fprintf(os.Stderr, "hglc gRPC server listening on :%d\n", servePort)
	if httpSrv != nil {
		fmt.Fprintf(os.Stderr, "hglc HTTP API listening on %s\n", httpAddr)
	}
	fmt.Fprintf(os.Stderr, "Run: %s\n\n", svc.RunID())

	return g.Wait()
}
