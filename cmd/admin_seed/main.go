// Command admin_seed loads presents and invites from a YAML file into the
// configured store, and prints the bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	admin_seed -file seed.yaml
//	admin_seed -hash 'the admin password'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"casamento/internal/config"
	"casamento/internal/logger"
	"casamento/internal/repositories/backend"
	"casamento/internal/services/auth"

	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "seed.yaml", "YAML file with presents and invites")
	hash := flag.String("hash", "", "print the bcrypt hash of this password and exit")
	flag.Parse()

	if *hash != "" {
		h, err := auth.HashPassword(*hash)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hash password:", err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	config.LoadEnv()
	cfg := config.Load()
	log := logger.For("casamento-seed", config.IsProduction())
	defer log.Sync() //nolint:errcheck

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal("open seed file", zap.Error(err))
	}
	defer f.Close()

	seed, err := ParseSeed(f)
	if err != nil {
		log.Fatal("parse seed file", zap.Error(err))
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	if store.Close != nil {
		defer store.Close() //nolint:errcheck
	}

	result, err := Apply(ctx, store, seed)
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	log.Info("seed applied",
		zap.Int("presents_created", result.PresentsCreated),
		zap.Int("presents_skipped", result.PresentsSkipped),
		zap.Int("invites_created", result.InvitesCreated),
		zap.Int("invites_skipped", result.InvitesSkipped),
	)
}
