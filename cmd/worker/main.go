package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"coeus/internal/activities"
	"coeus/internal/config"
	"coeus/internal/providers"
	"coeus/internal/storage"
	"coeus/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	pm, err := providers.NewManager(cfg)
	if err != nil {
		log.Fatal(err)
	}
	a, err := activities.New(cfg, db, pm, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()
	activities.Register(w, a)

	log.Printf("coeus worker listening on %s queue=%s llm=%d%v embed=%d%v",
		cfg.TemporalAddress, cfg.TemporalTaskQueue,
		pm.LLMCount(), refNames(pm.LLMProviderRefs()),
		pm.EmbedCount(), refNames(pm.EmbedProviderRefs()))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}

func refNames(refs []providers.ProviderRef) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names
}
