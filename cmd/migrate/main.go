package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"pickup/internal/config"
	"pickup/internal/store"
)

// Applies or inspects the embedded schema migrations: migrate [up|down|status].
func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down|status]")
	}
	flag.Parse()
	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg := config.Load()
	ctx := context.Background()
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("db connect failed: %v", err)
		return 1
	}
	defer db.Close()

	switch cmd {
	case "up":
		err = store.MigrateUp(ctx, db.Client)
	case "down":
		err = store.MigrateDown(ctx, db.Client)
	case "status":
		err = store.MigrateStatus(ctx, db.Client)
	default:
		flag.Usage()
		return 2
	}
	if err != nil {
		log.Printf("migrate %s: %v", cmd, err)
		return 1
	}
	log.Printf("migrate %s: done", cmd)
	return 0
}
