package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"newsdb/internal/app"
	"newsdb/pkg/config"
	"newsdb/pkg/logger"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	// Resolve config path (file flag wins over env)
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, rc, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Flags explicitly set win over env/config.
	if setFlags["addr"] {
		applyAddr(cfg, addrVal)
	}
	if setFlags["db"] || cfg.Server.DBPath == "" {
		cfg.Server.DBPath = dbVal
	}

	logger.InitWithLevel(cfg.Logging.Level)
	defer logger.Sync()
	if dir := cfg.Logging.TraceDir; dir != "" {
		if err := logger.AttachTraceFileSink(dir); err != nil {
			logger.Warn("trace_sink_unavailable", "dir", dir, "error", err)
		}
	}

	// Config sources summary for the banner (flags/env/config)
	srcs := []string{}
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := config.Load(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}

	a, err := app.New(cfg, rc, strings.Join(srcs, ", "), version, commit, buildDate)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("server_exit", "error", err)
		os.Exit(1)
	}
}

// applyAddr splits a -addr flag value like ":8080" or "127.0.0.1:9000"
// into the config's address and port fields.
func applyAddr(cfg *config.Config, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		cfg.Server.Address = addr
		return
	}
	cfg.Server.Address = host
	if pi, err := strconv.Atoi(port); err == nil {
		cfg.Server.Port = pi
	}
}
