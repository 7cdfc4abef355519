package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"pickup/internal/config"
	"pickup/internal/logging"
	"pickup/internal/store"
	"pickup/internal/teachers"
)

// Seeds the first admin teacher, or repairs an existing one.
//
//	seed                          create ADMIN_NAME / ADMIN_PHONE / ADMIN_PIN with full access
//	seed -reset-pin -phone P -pin 1234
//	seed -grant-admin -phone P
func main() {
	os.Exit(run())
}

func run() int {
	resetPIN := flag.Bool("reset-pin", false, "reset the PIN of the teacher with -phone")
	grantAdmin := flag.Bool("grant-admin", false, "give the teacher with -phone admin and scanner access")
	phone := flag.String("phone", "", "teacher phone for -reset-pin and -grant-admin")
	pin := flag.String("pin", "", "new 4-digit PIN for -reset-pin")
	flag.Parse()

	cfg := config.Load()
	logs, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Printf("logger init failed: %v", err)
		return 1
	}
	defer logs.Closer()
	logger := logs.Base.Named("seed")

	ctx := context.Background()
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", zap.Error(err))
		return 1
	}
	defer db.Close()
	if err := store.MigrateUp(ctx, db.Client); err != nil {
		logger.Error("migrations failed", zap.Error(err))
		return 1
	}

	svc := teachers.NewService(teachers.NewRepository(db.Client), teachers.TokenConfig{}, logger)

	switch {
	case *resetPIN:
		t, err := svc.ResetPIN(ctx, *phone, *pin)
		if err != nil {
			logger.Error("reset pin failed", zap.String("phone", *phone), zap.Error(err))
			return 1
		}
		logger.Info("pin reset", zap.Int64("teacher_id", t.ID), zap.String("phone", t.Phone))
	case *grantAdmin:
		t, err := svc.GrantAdmin(ctx, *phone)
		if err != nil {
			logger.Error("grant admin failed", zap.String("phone", *phone), zap.Error(err))
			return 1
		}
		logger.Info("admin access granted", zap.Int64("teacher_id", t.ID), zap.String("access", string(t.Access)))
	default:
		name := envOr("ADMIN_NAME", "Admin")
		adminPhone := envOr("ADMIN_PHONE", "0756202977")
		adminPIN := envOr("ADMIN_PIN", "5555")
		t, created, err := svc.EnsureAdmin(ctx, name, adminPhone, adminPIN)
		if err != nil {
			logger.Error("seed admin failed", zap.Error(err))
			return 1
		}
		if created {
			logger.Info("admin teacher created", zap.Int64("teacher_id", t.ID), zap.String("phone", t.Phone))
		} else {
			logger.Info("a teacher with this phone already exists, left unchanged; use -grant-admin to change access",
				zap.Int64("teacher_id", t.ID))
		}
	}

	all, err := svc.List(ctx)
	if err != nil {
		logger.Error("list teachers failed", zap.Error(err))
		return 1
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tACCESS\tACTIVE")
	for _, t := range all {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%v\n", t.ID, t.Name, t.Phone, t.Access, t.IsActive)
	}
	tw.Flush()
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
