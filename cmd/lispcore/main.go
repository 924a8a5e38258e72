// lispcore CLI - exercises a heap, dumps snapshots and serves inspection
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lispcore/config"
	"github.com/chazu/lispcore/gcstats"
	"github.com/chazu/lispcore/lisp"
	"github.com/chazu/lispcore/server"
	"github.com/chazu/lispcore/snapshot"
)

var log = commonlog.GetLogger("lispcore")

func main() {
	configDir := flag.String("config", "", "Directory to search for lispcore.toml (default: current directory)")
	verbose := flag.Int("v", -1, "Log verbosity (overrides [log] verbosity when >= 0)")
	dumpPath := flag.String("dump", "", "Write a CBOR heap snapshot to this path after the demo")
	readPath := flag.String("read", "", "Print a summary of a snapshot file and exit")
	serveMode := flag.Bool("serve", false, "Start the inspection server")
	addr := flag.String("addr", "", "Server address (default: [server] addr)")
	query := flag.String("query", "", "Print heap stats from a running server at this address")
	journal := flag.Bool("journal", false, "Print the collection journal summary and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lispcore [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a small rooting and collection demo on a fresh heap.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lispcore -dump heap.cbor      # Run demo, write snapshot\n")
		fmt.Fprintf(os.Stderr, "  lispcore -read heap.cbor      # Summarize a snapshot\n")
		fmt.Fprintf(os.Stderr, "  lispcore -serve -addr :7411   # Start inspection server\n")
		fmt.Fprintf(os.Stderr, "  lispcore -query localhost:7411\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	if *verbose >= 0 {
		cfg.Log.Verbosity = *verbose
	}
	cfg.ConfigureLogging()

	switch {
	case *readPath != "":
		if err := printSnapshot(*readPath); err != nil {
			fatalf("Error: %v", err)
		}
	case *query != "":
		if err := queryServer(*query); err != nil {
			fatalf("Error: %v", err)
		}
	case *journal:
		if err := printJournal(cfg); err != nil {
			fatalf("Error: %v", err)
		}
	case *serveMode:
		if *addr != "" {
			cfg.Server.Addr = *addr
		}
		srv, err := server.New(cfg)
		if err != nil {
			fatalf("Error starting server: %v", err)
		}
		defer srv.Stop()
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			fatalf("Server error: %v", err)
		}
	default:
		if err := runDemo(cfg, *dumpPath); err != nil {
			fatalf("Error: %v", err)
		}
	}
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadConfig finds lispcore.toml from dir upward, falling back to defaults.
func loadConfig(dir string) (*config.Config, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// runDemo roots a cons, drops a string, collects, and reports what
// survived.
func runDemo(cfg *config.Config, dumpPath string) error {
	opts := []lisp.Option{lisp.WithConfig(cfg.HeapConfig())}
	if p := cfg.DatabasePath(); p != "" {
		store, err := gcstats.Open(p)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, lisp.WithStatsSink(store))
	}

	cx, err := lisp.NewContext(opts...)
	if err != nil {
		return err
	}
	defer cx.Close()

	return lisp.CatchFatal(func() error {
		return cx.Scope(func(s *lisp.Scope) error {
			foo := cx.Intern("foo")
			fmt.Printf("interned %s as %s\n", cx.SymbolName(foo), foo)
			cell := lisp.ScopeRoot(s, cx.NewCons(lisp.MustInt(42).Object(), lisp.Nil.Object()))
			hello := cx.NewString("hello")

			st := cx.GarbageCollect(true)
			fmt.Printf("collected epoch %d: %d -> %d objects, %d -> %d bytes in %s\n",
				st.Epoch, st.ObjectsBefore, st.ObjectsAfter, st.BytesBefore, st.BytesAfter, st.Duration)

			c := cx.Cons(cell.Get())
			fmt.Printf("rooted cell: %s (car %d)\n", cx.Format(cell.Get().Object()), c.Car().Int64())

			err := lisp.CatchFatal(func() error {
				_ = cx.LispString(hello).String()
				return nil
			})
			var stale *lisp.StaleReferenceError
			if errors.As(err, &stale) {
				fmt.Printf("unrooted string: %s\n", stale.Reason)
			}

			if dumpPath != "" {
				if err := snapshot.WriteFile(dumpPath, snapshot.Capture(cx)); err != nil {
					return err
				}
				fmt.Printf("wrote snapshot to %s\n", dumpPath)
			}
			return nil
		})
	})
}

func printSnapshot(path string) error {
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("snapshot %s\n", snap.ID)
	fmt.Printf("  context: %s\n", snap.ContextID)
	fmt.Printf("  taken:   %s\n", snap.Taken().Format("2006-01-02 15:04:05"))
	fmt.Printf("  epoch:   %d\n", snap.Epoch)
	fmt.Printf("  objects: %d (%d bytes)\n", len(snap.Objects), snap.Bytes)
	fmt.Printf("  symbols: %d\n", len(snap.Symbols))

	counts := snap.CountByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("    %-12s %d\n", k, counts[k])
	}
	return nil
}

func printJournal(cfg *config.Config) error {
	p := cfg.DatabasePath()
	if p == "" {
		return fmt.Errorf("no [stats] database configured")
	}
	store, err := gcstats.Open(p)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Summarize()
	if errors.Is(err, gcstats.ErrNoCollections) {
		fmt.Println("no collections recorded")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d collections across %d contexts\n", sum.Collections, sum.Contexts)
	fmt.Printf("  freed:   %d bytes\n", sum.BytesFreed)
	fmt.Printf("  total:   %s (max %s)\n", sum.TotalTime, sum.MaxTime)
	fmt.Printf("  last:    %s\n", sum.Last.Format("2006-01-02 15:04:05"))
	return nil
}

func queryServer(addr string) error {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	client := server.NewInspectClient(http.DefaultClient, addr)
	stats, err := client.Stats(context.Background())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-12s %v\n", k, stats[k])
	}
	return nil
}
