package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	zlog "github.com/rs/zerolog/log"

	"irondb/internal/client"
	"irondb/internal/clock"
	"irondb/internal/config"
	"irondb/internal/logging"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] ping [name] | get <key> | put <key> <value>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configName := flag.String("config", config.DefaultName, "Configuration source (tried as <name>.yaml, <name>.yml, <name>)")
	addr := flag.String("addr", "", "Override dflt_server_hostport")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-command timeout")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configName)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	logger, err := logging.Setup(cfg.LogLevel, "console")
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to set up logging")
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c, err := client.Dial(cfg.ListenAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect")
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, c, cfg.WriterID, args); err != nil {
		logger.Error().Err(err).Str("command", args[0]).Msg("command failed")
		cancel()
		c.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, c *client.Client, writer uint16, args []string) error {
	switch args[0] {
	case "ping":
		name := "irondb-client"
		if len(args) > 1 {
			name = args[1]
		}
		msg, err := c.Ping(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, msg)
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("get takes exactly one key")
		}
		res, err := c.Reconcile(ctx, args[1])
		if err != nil {
			return err
		}
		switch {
		case res.IsNotFound():
			fmt.Fprintln(w, "(not found)")
		case res.IsResolved():
			printSiblings(w, res.Winners)
		case res.HasConflict():
			fmt.Fprintf(w, "conflict: %d siblings\n", len(res.Winners))
			printSiblings(w, res.Winners)
		}
	case "put":
		if len(args) != 3 {
			return fmt.Errorf("put takes a key and a value")
		}
		previous, err := c.PutResolved(ctx, args[1], []byte(args[2]), writer)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "replaced %d sibling(s)\n", len(previous))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func printSiblings(w io.Writer, siblings []clock.Versioned[[]byte]) {
	for _, s := range siblings {
		if s.Version.IsEmpty() {
			fmt.Fprintf(w, "%q\t(no causal history)\n", s.Value)
			continue
		}
		fmt.Fprintf(w, "%q\t%s\n", s.Value, s.Version)
	}
}
