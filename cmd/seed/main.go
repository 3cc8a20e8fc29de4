// File: cmd/seed/main.go
//
// Loads account credentials into a plan's inventory pool. Input is a plain
// text file, one credential per line (e.g. "user:pass").
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"mpesa-subscription-shop/internal/config"
	"mpesa-subscription-shop/internal/domain/ports/repository"
	"mpesa-subscription-shop/internal/infra/catalog"
	pg "mpesa-subscription-shop/internal/infra/db/postgres"
	red "mpesa-subscription-shop/internal/infra/redis"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	planID := flag.String("plan", "", "plan id to load credentials for")
	file := flag.String("file", "", "credentials file, one per line")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	// The inventory backend must match what the service runs with, or the
	// seeded credentials land in a pool nobody reads.
	var inv repository.CredentialInventory
	switch cfg.Inventory.Backend {
	case "redis":
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		inv = red.NewCredentialStore(redisClient)
	default:
		pool, err := pg.NewPgxPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		inv = pg.NewCredentialRepo(pool)
	}

	// Without arguments, report current inventory levels and exit.
	if *planID == "" || *file == "" {
		cats, err := cat.Categories(ctx)
		if err != nil {
			log.Fatalf("categories: %v", err)
		}
		for _, c := range cats {
			for _, p := range c.Plans {
				n, err := inv.Count(ctx, p.ID)
				if err != nil {
					log.Fatalf("count %s: %v", p.ID, err)
				}
				fmt.Printf("%-14s %4d credentials\n", p.ID, n)
			}
		}
		return
	}

	if plan, _, err := cat.FindPlan(ctx, *planID); err != nil || plan.IsZero() {
		log.Fatalf("unknown plan %q", *planID)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open %s: %v", *file, err)
	}
	defer f.Close()

	var creds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		creds = append(creds, line)
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	if len(creds) == 0 {
		log.Fatalf("no credentials found in %s", *file)
	}

	if err := inv.Add(ctx, *planID, creds...); err != nil {
		log.Fatalf("add credentials: %v", err)
	}

	n, err := inv.Count(ctx, *planID)
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	fmt.Printf("loaded %d credentials for %s (pool now %d)\n", len(creds), *planID, n)
}
