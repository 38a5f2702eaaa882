// Command admintoken issues admin credentials for the shop API.
//
//	admintoken -name "Rahim"              mint a bearer token with Auth.JWTSecret
//	admintoken -hash-key <key>            print a bcrypt hash for Auth.AdminAPIKeyHash
//	admintoken -generate-key              create a random key and print it with its hash
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/metagameshop/shop-backend/internal/config"
	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/utils"
	tokens "github.com/metagameshop/shop-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

func main() {
	subject := flag.String("subject", "admin", "admin id stored in the token")
	name := flag.String("name", "admin", "admin display name recorded on decisions")
	ttl := flag.Duration("ttl", tokens.DefaultTTL, "token lifetime")
	hashKey := flag.String("hash-key", "", "bcrypt-hash this API key instead of minting a token")
	generateKey := flag.Bool("generate-key", false, "generate a random API key and its bcrypt hash")
	flag.Parse()

	switch {
	case *generateKey:
		key, err := utils.GenerateRandomString(32)
		if err != nil {
			fail("Failed to generate key", err)
		}
		printKey(key)
	case *hashKey != "":
		printKey(*hashKey)
	default:
		cfg, err := config.Load(".")
		if err != nil {
			fail("Failed to load configuration", err)
		}
		if cfg.Auth.JWTSecret == "" {
			fail("Auth.JWTSecret is not set", nil)
		}
		token, err := tokens.NewService(cfg.Auth.JWTSecret).GenerateToken(*subject, *name, models.RoleAdmin, *ttl)
		if err != nil {
			fail("Failed to generate token", err)
		}
		fmt.Println(token)
		slog.Info("Admin token issued", "subject", *subject, "expiresAt", time.Now().Add(*ttl).Format(time.RFC3339))
	}
}

func printKey(key string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		fail("Failed to hash key", err)
	}
	fmt.Printf("api key:  %s\nAUTH_ADMINAPIKEYHASH=%s\n", key, hash)
}

func fail(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}
