// Command keygen issues an API key for an existing user and prints the raw key once
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AhmadKaify/Sanasend/config"
	apikeypostgres "github.com/AhmadKaify/Sanasend/internal/domain/apikey/repository/postgres"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/usecase/business"
	userpostgres "github.com/AhmadKaify/Sanasend/internal/domain/user/repository/postgres"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/database"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/logger"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

func main() {
	username := flag.String("user", "", "username to issue the key for")
	name := flag.String("name", "default", "human readable key name")
	ttl := flag.Duration("ttl", 0, "key lifetime, 0 means no expiry")
	whitelist := flag.String("ips", "", "comma separated IP whitelist")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: keygen -user <username> [-name n] [-ttl 720h] [-ips 10.0.0.1,10.0.0.2]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Logging.Level)

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := userpostgres.NewRepository(db)
	user, err := users.GetByUsername(ctx, *username)
	if err != nil {
		log.Fatal().Err(err).Str("username", *username).Msg("Failed to find user")
	}

	auth := business.NewAuthenticator(
		apikeypostgres.NewRepository(db),
		users,
		business.NewKeyHasher(&cfg.Security),
		metrics.GetDefaultMetrics(),
		log,
	)

	var expiresAt *time.Time
	if *ttl > 0 {
		at := time.Now().UTC().Add(*ttl)
		expiresAt = &at
	}

	var ips []string
	for _, ip := range strings.Split(*whitelist, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips = append(ips, ip)
		}
	}

	created, err := auth.CreateKey(ctx, user.ID, *name, expiresAt, ips)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API key")
	}

	log.Info().
		Uint("key_id", created.ID).
		Uint("user_id", user.ID).
		Str("name", created.Name).
		Msg("API key created")

	// The raw key is not recoverable after this point
	fmt.Println(created.RawKey)
}
