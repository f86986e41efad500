package main

import (
	"fmt"
	"log"
	"os"

	"github.com/xelth-com/eckpunchgo/internal/config"
	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"go.uber.org/zap"
)

func main() {
	fmt.Println("🔎 Verifying punch integrity hashes...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	store, err := ledger.Open(ledger.Options{
		DB: database.Options{Path: cfg.Store.Path, BusyTimeout: cfg.Store.BusyTimeout},
	}, zap.NewNop())
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if store.Degraded() {
		fmt.Println("⚠️  Store failed its structural self-test")
	}

	st, err := store.Stats()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("📦 Checking %d punches in %s\n", st.TotalPunches, store.Path())

	bad, err := store.VerifyHashes()
	if err != nil {
		log.Fatal(err)
	}
	if len(bad) == 0 {
		fmt.Println("✅ All hashes match")
		return
	}

	fmt.Printf("❌ %d punches no longer match their hash:\n", len(bad))
	for _, id := range bad {
		fmt.Printf("   - id %d\n", id)
	}
	os.Exit(1)
}
