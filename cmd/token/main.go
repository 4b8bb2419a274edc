package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/nexus"
	"github.com/joefazee/marketcore/internal/security"
)

type config struct {
	TokenSymmetricKey string `env:"TOKEN_SYMMETRIC_KEY" validate:"len=32"`
}

func main() {
	userFlag := flag.String("user", "", "user id the token is issued to (required)")
	permsFlag := flag.String("perms", "", "comma separated permissions, e.g. markets:write,markets:settle")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	log := logger.NewZeroLogger(os.Stderr, logger.LevelInfo, logger.Fields{"service": "marketcore-token"})

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		log.Fatal(fmt.Errorf("invalid -user: %w", err), nil)
	}

	_ = godotenv.Load()
	var cfg config
	if err := nexus.NewLoader().Load(context.Background(), &cfg); err != nil {
		log.Fatal(err, map[string]interface{}{"op": "load configuration"})
	}

	maker, err := security.NewPasetoMaker(cfg.TokenSymmetricKey)
	if err != nil {
		log.Fatal(err, nil)
	}

	token, payload, err := maker.CreateToken(userID, splitPermissions(*permsFlag), *ttl)
	if err != nil {
		log.Fatal(err, nil)
	}

	log.Info("token issued", map[string]interface{}{
		"user_id":     userID.String(),
		"permissions": payload.Permissions,
		"expires_at":  payload.ExpiredAt,
	})
	fmt.Println(token)
}

func splitPermissions(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
