package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	fs := flag.NewFlagSet("rona-redir", flag.ContinueOnError)
	configPath := fs.String("c", "config.yaml", "path to YAML config file")
	testConfig := fs.Bool("t", false, "test configuration and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Load configuration
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		if *testConfig {
			fmt.Fprintf(os.Stderr, "configuration test FAILED: %v\n", err)
			os.Exit(1)
		}
		log.Printf("[main] %v", err)
		os.Exit(1)
	}

	// Config test mode: validate and exit
	if *testConfig {
		fmt.Printf("configuration file %s test OK\n", *configPath)
		fmt.Printf("  redir:   %s:%s\n", cfg.Redir.Address, cfg.Redir.Port)
		fmt.Printf("  servers: %d\n", len(cfg.Servers))
		for _, s := range cfg.Servers {
			fmt.Printf("    %s:%s (key %d bytes)\n", s.Address, s.Port, len(s.Key))
		}
		os.Exit(0)
	}

	log.Printf("[main] loaded %d relay servers from %s", len(cfg.Servers), *configPath)

	// Resolve relay addresses once; the set is fixed for the process lifetime
	relays, err := ResolveRelays(cfg.Servers)
	if err != nil {
		log.Printf("[main] wrong server_host/server_port: %v", err)
		os.Exit(2)
	}

	// Connection pool
	red, err := NewRedirector(relays, cfg.PoolSize)
	if err != nil {
		log.Printf("[main] connection pool error: %v", err)
		os.Exit(3)
	}
	red.debug = cfg.LogLevel == "debug"

	// Shutdown on SIGINT/SIGTERM: stop accepting, close the listener.
	// In-flight connections are closed by process exit.
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received signal %s, shutting down...", sig)
		cancel()
	}()

	log.Printf("[main] starting redirector at %s:%s", cfg.Redir.Address, cfg.Redir.Port)
	if err := red.ListenAndServe(ctx, cfg.Redir.Address, cfg.Redir.Port); err != nil {
		log.Printf("[main] %v", err)
		os.Exit(4)
	}

	log.Println("[main] exit")
}
