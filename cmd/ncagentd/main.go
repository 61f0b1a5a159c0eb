// Command ncagentd wires the NETCONF RPC execution core (schema registry,
// value codec, filter compiler, lock manager, datastore backend, and RPC
// executors) together and drives it over framed messages on stdin/stdout.
//
// A real deployment fronts this core with an SSH or TLS transport that
// negotiates capabilities and authenticates the peer before handing framed
// <rpc> messages to Server.HandleRPC; transport and authentication are
// explicitly out of scope for this core (see the project's non-goals), so
// this entrypoint speaks base:1.0 framing directly over the process's own
// stdio as the simplest harness that exercises the wired stack end to end.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ncagentd/ncagentd/pkg/config"
	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/lock"
	"github.com/ncagentd/ncagentd/pkg/logger"
	"github.com/ncagentd/ncagentd/pkg/netconf"
	"github.com/ncagentd/ncagentd/pkg/schema"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to ncagentd.yaml configuration (defaults built in if omitted)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ncagentd version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	log := logger.New("ncagentd", logger.DefaultConfig())
	log.Info("starting ncagentd", "version", version, "commit", commit)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath, log)
		if err != nil {
			log.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	reg, err := schema.LoadDefault()
	if err != nil {
		log.Error("failed to load schema modules", "error", err)
		os.Exit(1)
	}

	dsCfg, err := cfg.ToDatastoreConfig()
	if err != nil {
		log.Error("invalid datastore configuration", "error", err)
		os.Exit(1)
	}
	ds, err := datastore.NewDatastore(dsCfg)
	if err != nil {
		log.Error("failed to initialize datastore backend", "error", err)
		os.Exit(1)
	}
	defer ds.Close()

	locks := lock.New(ds)
	sessions := netconf.NewSessionManager(locks, log)
	server := netconf.NewServer(ds, reg, locks, sessions, log, cfg.DefaultWithDefaults)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go runStdioSession(ctx, server, sessions, log, done)

	log.Info("ncagentd ready, reading framed NETCONF messages on stdin")

	select {
	case <-sigChan:
		log.Info("received shutdown signal")
	case <-done:
		log.Info("stdin closed")
	}

	cancel()
	log.Info("shutdown complete")
}

// runStdioSession creates one session representing the stdio peer and
// processes framed <rpc> messages from stdin until EOF, ctx cancellation, or
// a read error, writing each <rpc-reply> back to stdout.
func runStdioSession(ctx context.Context, server *netconf.Server, sessions *netconf.SessionManager, log *logger.Logger, done chan<- struct{}) {
	defer close(done)

	sess := sessions.Create()
	defer sessions.Close(context.Background(), sess.ID)

	r := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := netconf.ReadFramedMessage(r)
		if err != nil {
			if err != io.EOF {
				log.Error("reading framed message", "error", err)
			}
			return
		}

		rpc, perr := netconf.ParseRPC(msg)
		var reply []byte
		if perr != nil {
			if rerr, ok := perr.(*netconf.RPCError); ok {
				reply = netconf.MarshalErrorReply("unknown", rerr)
			} else {
				reply = netconf.MarshalErrorReply("unknown", netconf.ErrMalformedMessage(perr.Error()))
			}
		} else {
			reply = server.HandleRPC(ctx, sess, rpc)
		}

		if err := netconf.WriteFramedMessage(os.Stdout, reply); err != nil {
			log.Error("writing framed reply", "error", err)
			return
		}
	}
}
