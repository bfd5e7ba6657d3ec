package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"airtrack/internal/automation"
	"airtrack/internal/config"
	database "airtrack/internal/db"
	"airtrack/internal/syncer"
	"airtrack/internal/timetable"
)

// One-shot sync trigger, meant for cron:
//
//	*/30 * * * *  airtrack-sync
//
// It respects the stored integration settings: a paused integration or
// disabled auto-sync makes this a no-op unless -force is given.
func main() {
	lookback := flag.Int("lookback", 0, "lookback window in hours (0 = configured default)")
	force := flag.Bool("force", false, "run even when auto-sync is disabled")
	checkHealth := flag.Bool("check-health", false, "probe the platform and update health state instead of syncing")
	flag.Parse()

	log.SetFlags(log.LstdFlags)

	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Station.Timezone)
	if err != nil {
		loc = time.Local
	}

	db := database.New(cfg)

	shows, err := timetable.Load(cfg.Station.TimetablePath)
	if err != nil {
		shows = nil
	}

	client := automation.NewClient(time.Duration(cfg.Automation.TimeoutSeconds) * time.Second)
	service := syncer.New(db.DB, client, loc, shows)

	if *checkHealth {
		if err := service.CheckHealth(); err != nil {
			log.Fatalf("❌ Health check failed: %v", err)
		}
		log.Println("✅ Integration healthy")
		return
	}

	integration, err := service.Config()
	if err != nil {
		log.Fatalf("❌ Integration is not configured: %v", err)
	}
	if !integration.AutoSyncEnabled && !*force {
		log.Println("Auto-sync is disabled; use -force to run anyway")
		return
	}

	hours := *lookback
	if hours <= 0 {
		hours = cfg.Automation.DefaultLookbackHours
	}

	summary, err := service.Sync(hours)
	if err != nil {
		log.Fatalf("❌ Sync failed: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Window:\t%s → %s\n",
		summary.WindowStart.Format(time.RFC3339), summary.WindowEnd.Format(time.RFC3339))
	fmt.Fprintf(w, "Events seen:\t%d\n", summary.EventsSeen)
	fmt.Fprintf(w, "New entries:\t%d\n", summary.NewEntries)
	fmt.Fprintf(w, "Duplicates:\t%d\n", summary.Duplicates)
	fmt.Fprintf(w, "Unmatched:\t%d\n", summary.Unmatched)
	w.Flush()
}
