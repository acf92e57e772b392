// reaper runs one expiry sweep over sessions, refresh tokens, and the
// blacklist, then exits. Meant for cron or one-off cleanup; the server also
// runs the same sweep on an interval in-process.
package main

import (
	"context"
	"log"
	"time"

	"session-lifecycle/internal/blacklist"
	blacklistpg "session-lifecycle/internal/blacklist/postgres"
	blacklistredis "session-lifecycle/internal/blacklist/redis"
	"session-lifecycle/internal/config"
	"session-lifecycle/internal/db"
	"session-lifecycle/internal/reaper"
	sessionrepo "session-lifecycle/internal/session/repository"
	tokenrepo "session-lifecycle/internal/token/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("config: DATABASE_URL must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	var denylist blacklist.Store
	if cfg.RedisURL != "" {
		// Redis expires blacklist keys itself; nothing to sweep there.
		denylist, err = blacklistredis.NewStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis blacklist: %v", err)
		}
	} else {
		denylist = blacklistpg.NewStore(database)
	}
	defer denylist.Close()

	sweeper := reaper.New(
		sessionrepo.NewPostgresRepository(database),
		tokenrepo.NewPostgresRepository(database),
		denylist,
		time.Hour,
	)
	res, err := sweeper.Sweep(ctx)
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	log.Printf("removed %d sessions, %d tokens, %d blacklist entries", res.Sessions, res.Tokens, res.Blacklist)
}
