package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nmorelli/climarg/internal/api"
	"github.com/nmorelli/climarg/internal/config"
	"github.com/nmorelli/climarg/internal/ingest"
	"github.com/nmorelli/climarg/internal/models"
	"github.com/nmorelli/climarg/internal/store"
)

var defaultRegions = []models.Region{
	{Name: "capital", StationID: "87344", Latitude: -31.421, Longitude: -64.188, Active: true},
	{Name: "norte", StationID: "87322", Latitude: -30.900, Longitude: -64.533, Active: true},
	{Name: "sierras", StationID: "87349", Latitude: -31.950, Longitude: -64.967, Active: true},
	{Name: "este", StationID: "87453", Latitude: -32.667, Longitude: -62.150, Active: true},
	{Name: "sur", StationID: "87534", Latitude: -33.117, Longitude: -64.233, Active: true},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbPath := flag.String("db", cfg.DBPath, "path to SQLite database")
	port := flag.String("port", cfg.Port, "HTTP server port")
	noPoll := flag.Bool("no-poll", false, "disable the pipeline schedule (server only, for local dev)")
	once := flag.Bool("once", false, "run one pipeline batch and exit")
	flag.Parse()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("warning: could not load timezone %s, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	for _, region := range defaultRegions {
		if err := st.UpsertRegion(region); err != nil {
			log.Fatalf("upsert region %s: %v", region.Name, err)
		}
	}
	log.Println("regions seeded")

	provider := ingest.NewMeteostatClient(loc)
	runner := ingest.NewRunner(st, provider, cfg.Workers, cfg.HistoryYears)
	scheduler := ingest.NewScheduler(runner, loc)
	server := api.NewServer(st, *port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		log.Println("running single pipeline batch")
		report := runner.RunOnce(ctx)
		if report.Count(models.StatusError) > 0 {
			log.Printf("regions in error: %v", report.Regions[models.StatusError])
		}
		log.Println("done")
		return
	}

	if !*noPoll {
		if err := scheduler.Start(ctx, cfg.PollInterval); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer scheduler.Stop()
	} else {
		log.Println("pipeline schedule disabled (--no-poll)")
	}

	log.Printf("starting server on :%s", *port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
