package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/lobbydraft/config"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// Seed file layout:
//
//	{
//	  "lists":   [{"name": "vets", "players": ["123"], "groups": ["456"]}],
//	  "configs": [{"name": "ranked", "rules": {"medic": {"whitelist": "vets"}}}]
//	}
type seedFile struct {
	Lists []struct {
		Name    string   `json:"name"`
		Players []string `json:"players"`
		Groups  []string `json:"groups"`
	} `json:"lists"`
	Configs []struct {
		Name  string                       `json:"name"`
		Rules map[string]models.AccessRule `json:"rules"`
	} `json:"configs"`
}

var (
	redisURL  = flag.String("redis", "localhost:6379", "Redis URL (host:port)")
	redisPass = flag.String("password", "", "Redis password")
	owner     = flag.String("owner", "guild", "Owner scope to seed (a player id or the shared scope)")
	file      = flag.String("file", "", "Seed file (JSON)")
	token     = flag.String("token", "", "Also print a dev token for this player id")
	admin     = flag.Bool("admin", false, "Issue the dev token with admin rights")
	secret    = flag.String("jwt-secret", "jwt-secret", "Secret used to sign the dev token")
)

func main() {
	flag.Parse()

	if *file == "" && *token == "" {
		fmt.Println("Error: --file or --token is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{Level: "warn", Mode: "development", Encoding: "console"})

	if *file != "" {
		if err := seed(ctx, l); err != nil {
			fmt.Printf("Seeding failed: %v\n", err)
			os.Exit(1)
		}
	}

	if *token != "" {
		tokens := service.NewTokenService(config.JWTConfig{Secret: *secret, Expiry: 24 * time.Hour}, l)
		tok, err := tokens.Issue(ctx, models.Caller{PlayerID: *token, Admin: *admin})
		if err != nil {
			fmt.Printf("Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(tok)
	}
}

func seed(ctx context.Context, l pkgLog.Logger) error {
	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var sf seedFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: *redisURL, Password: *redisPass})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	fmt.Printf("Connected to Redis at %s, seeding owner %q\n", *redisURL, *owner)

	svc := service.NewAccessService(repo.NewRedisAccessRepository(rdb, l), l)

	for _, list := range sf.Lists {
		if _, err := svc.CreateList(ctx, *owner, list.Name); err != nil && !errors.Is(err, errs.ErrListExists) {
			return fmt.Errorf("list %s: %w", list.Name, err)
		}
		for _, p := range list.Players {
			if _, err := svc.AddPlayer(ctx, *owner, list.Name, p); err != nil {
				return fmt.Errorf("list %s player %s: %w", list.Name, p, err)
			}
		}
		for _, g := range list.Groups {
			if _, err := svc.AddGroup(ctx, *owner, list.Name, g); err != nil {
				return fmt.Errorf("list %s group %s: %w", list.Name, g, err)
			}
		}
		fmt.Printf("  list %-20s players=%d groups=%d\n", list.Name, len(list.Players), len(list.Groups))
	}

	for _, cfg := range sf.Configs {
		if _, err := svc.CreateConfig(ctx, *owner, cfg.Name); err != nil && !errors.Is(err, errs.ErrConfigExists) {
			return fmt.Errorf("config %s: %w", cfg.Name, err)
		}
		for role, rule := range cfg.Rules {
			if _, err := svc.SetRule(ctx, *owner, cfg.Name, role, rule); err != nil {
				return fmt.Errorf("config %s rule %s: %w", cfg.Name, role, err)
			}
		}
		fmt.Printf("  config %-18s rules=%d\n", cfg.Name, len(cfg.Rules))
	}

	return nil
}
