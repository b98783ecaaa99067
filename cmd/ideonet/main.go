package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vthunder/ideonet/internal/budget"
	"github.com/vthunder/ideonet/internal/learning"
	"github.com/vthunder/ideonet/internal/network"
	"github.com/vthunder/ideonet/internal/prefab"
	"github.com/vthunder/ideonet/internal/reason"
	"github.com/vthunder/ideonet/internal/seed"
	"github.com/vthunder/ideonet/internal/snapshot"
	"github.com/vthunder/ideonet/internal/store"
	"github.com/vthunder/ideonet/internal/symbols"
)

func main() {
	log.Println("ideonet - ideom activation reasoning core")

	// Load .env file (optional - won't error if missing)
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, using environment variables")
	} else {
		log.Println("[config] Loaded .env file")
	}

	statePath := os.Getenv("STATE_PATH")
	if statePath == "" {
		statePath = "state"
	}
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = "seeds"
	}

	rngSeed := time.Now().UnixNano()
	if s := os.Getenv("RNG_SEED"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			log.Fatalf("invalid RNG_SEED %q: %v", s, err)
		}
		rngSeed = parsed
	}
	rng := rand.New(rand.NewSource(rngSeed))

	os.MkdirAll(statePath, 0755)

	db, err := store.Open(statePath)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer db.Close()

	net, mgr := loadCore(db, seedPath)

	engine := learning.NewEngine(net, mgr, rng)
	orch := reason.New(net, mgr, engine, rng)

	watcher := budget.NewWatcher()
	watcher.Start()
	defer watcher.Stop()
	orch.SetBudget(watcher)

	log.Printf("[main] ready: %d ideoms, %d prefabs", net.Len(), mgr.Len())
	repl(orch, db, net, mgr)
}

// loadCore restores the latest snapshot, falling back to the seed
// directory on an empty store.
func loadCore(db *store.DB, seedPath string) (*network.Network, *prefab.Manager) {
	snap, err := db.LoadLatest()
	if err == nil {
		net, mgr, restoreErr := snapshot.Restore(snap)
		if restoreErr != nil {
			log.Fatalf("Failed to restore snapshot: %v", restoreErr)
		}
		log.Printf("[main] restored snapshot (%d ideoms)", net.Len())
		return net, mgr
	}
	if !errors.Is(err, store.ErrEmpty) {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	net := network.New()
	mgr := prefab.NewManager()
	if err := seed.Load(seedPath, net, mgr); err != nil {
		log.Printf("Warning: failed to load seeds: %v", err)
	}
	return net, mgr
}

func repl(orch *reason.Orchestrator, db *store.DB, net *network.Network, mgr *prefab.Manager) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("enter text to reason about; /feedback <score> [symbols...], /save, /maintain, /quit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if runCommand(line, orch, db, net, mgr) {
				return
			}
			continue
		}

		toks := symbols.Tokenize(line)
		if len(toks) == 0 {
			fmt.Println("no usable symbols in input")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		res, err := orch.Reason(ctx, toks, nil)
		cancel()
		if err != nil {
			log.Printf("[main] reason failed: %v", err)
			continue
		}
		fmt.Println(res.Explanation)
	}
}

// runCommand handles a /command line and reports whether the REPL
// should exit.
func runCommand(line string, orch *reason.Orchestrator, db *store.DB, net *network.Network, mgr *prefab.Manager) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/save":
		id, err := db.Save(snapshot.Capture(net, mgr))
		if err != nil {
			log.Printf("[main] save failed: %v", err)
			break
		}
		fmt.Printf("saved snapshot %d\n", id)

	case "/maintain":
		orch.Maintain()
		fmt.Println("maintenance done")

	case "/feedback":
		if len(fields) < 2 {
			fmt.Println("usage: /feedback <score in [-1,1]> [corrected symbols...]")
			break
		}
		score, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			fmt.Printf("bad score %q\n", fields[1])
			break
		}
		diag, err := orch.ApplyFeedback(score, fields[2:])
		if err != nil {
			fmt.Printf("feedback failed: %v\n", err)
			break
		}
		fmt.Printf("feedback applied (unresolved=%d removed=%d prefab=%v)\n",
			diag.UnresolvedReferences, diag.ConnectionsRemoved, diag.PrefabCreated)

	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}
