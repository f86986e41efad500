package main

import (
	"fmt"
	"log"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/config"
	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	store, err := ledger.Open(ledger.Options{
		DB: database.Options{Path: cfg.Store.Path, BusyTimeout: cfg.Store.BusyTimeout},
	}, zap.NewNop())
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer store.Close()

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║              📊 eckPunch Kiosk Data Report                ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	st, err := store.Stats()
	if err != nil {
		log.Fatalf("❌ Failed to read stats: %v", err)
	}
	fmt.Println("📈 LEDGER STATISTICS")
	fmt.Println("──────────────────────────────────────────────────────────")
	fmt.Printf("  Store:           %s\n", store.Path())
	fmt.Printf("  Punches:         %d\n", st.TotalPunches)
	fmt.Printf("  Distinct badges: %d\n", st.DistinctBadges)
	fmt.Printf("  Today:           %d\n", st.PunchesToday)
	if st.LastPunchTime != nil {
		fmt.Printf("  Last punch:      %s\n", st.LastPunchTime.Local().Format(time.DateTime))
	}
	fmt.Printf("  Size on disk:    %d bytes\n", st.StoreSizeBytes)
	if store.Degraded() {
		fmt.Println("  ⚠️  Integrity self-test failed")
	}
	fmt.Println()

	employees, err := store.Employees()
	if err != nil {
		log.Fatalf("❌ Failed to list employees: %v", err)
	}
	fmt.Println("👥 DIRECTORY")
	fmt.Println("──────────────────────────────────────────────────────────")
	for _, e := range employees {
		badge := e.Badge()
		if badge == "" {
			badge = "-"
		}
		status := ""
		if !e.Active {
			status = " (inactive)"
		}
		fmt.Printf("  [%s] %-30s badge %s%s\n", e.Code, e.FullName(), badge, status)
	}
	fmt.Println()

	today, err := store.Today()
	if err != nil {
		log.Fatalf("❌ Failed to read today's punches: %v", err)
	}
	fmt.Println("🕘 TODAY")
	fmt.Println("──────────────────────────────────────────────────────────")
	if len(today) == 0 {
		fmt.Println("  (no punches)")
	}
	for _, p := range today {
		fmt.Printf("  %s  %-8s %-12s %s %s  [%s]\n",
			p.Timestamp.Local().Format("15:04:05"), p.Movement, p.BadgeID, p.FirstName, p.Surname, p.SyncStatus)
	}
}
