package main

import (
	"fmt"
	"log"

	"github.com/xelth-com/eckpunchgo/internal/config"
	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"go.uber.org/zap"
)

type demoEmployee struct {
	code, first, last, badge string
}

var demo = []demoEmployee{
	{"0000000123", "Maria", "Rossi", "AABBCC11"},
	{"0000000124", "Luca", "Bianchi", "AABBCC12"},
	{"0000000125", "Giulia", "Esposito", "AABBCC13"},
	{"0000000126", "Marco", "Romano", ""},
	{"0000000127", "Francesca", "", "AABBCC15"},
}

func main() {
	fmt.Println("🌱 eckPunch Demo Directory Seeder")
	fmt.Println("────────────────────────────────────────")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	store, err := ledger.Open(ledger.Options{
		DB:       database.Options{Path: cfg.Store.Path, BusyTimeout: cfg.Store.BusyTimeout},
		Location: cfg.Store.Location,
		DeviceID: cfg.Store.DeviceID,
	}, zap.NewNop())
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer store.Close()

	existing, err := store.Employees()
	if err != nil {
		log.Fatalf("❌ Failed to read directory: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("⚠️  Directory already has %d employees. Replace the whole ledger? (y/N): ", len(existing))
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Store not modified.")
			return
		}
		if err := store.ResetAll(false); err != nil {
			log.Fatalf("❌ Reset failed: %v", err)
		}
		fmt.Println("🗑️  Ledger and directory cleared")
	}

	for _, d := range demo {
		if _, err := store.UpsertEmployee(d.code, d.first, d.last); err != nil {
			log.Printf("⚠️  Failed to create employee %s: %v", d.code, err)
			continue
		}
		if d.badge != "" {
			if err := store.BindBadge(d.code, d.badge); err != nil {
				log.Printf("⚠️  Failed to bind badge %s: %v", d.badge, err)
				continue
			}
		}
		fmt.Printf("   ✓ %s %s %s\n", d.code, d.first, d.last)
	}
	fmt.Printf("✅ Seeded %d employees into %s\n", len(demo), store.Path())
}
