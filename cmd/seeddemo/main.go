// Command seeddemo fills the local keydash database with a demo organization
// and, with -secret, prints a signed session token for it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bekirdag/keydash/internal/config"
	"github.com/bekirdag/keydash/internal/identity"
	"github.com/bekirdag/keydash/internal/store"
)

func main() {
	var (
		configPath string
		userID     string
		role       string
		secret     string
		ttl        time.Duration
		skipSeed   bool
	)
	flag.StringVar(&configPath, "config", "", "path to config.yaml (default: user config dir)")
	flag.StringVar(&userID, "user", "", "acting user id (default: local_user_id)")
	flag.StringVar(&role, "role", string(identity.RoleAdmin), "org role written into the token")
	flag.StringVar(&secret, "secret", "", "HS256 secret; when set a session token is printed")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.BoolVar(&skipSeed, "token-only", false, "only print a token, leave the database alone")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		exit(err)
	}
	if userID == "" {
		userID = cfg.LocalUserID
	}

	if !skipSeed {
		if err := seed(cfg, userID); err != nil {
			exit(err)
		}
		fmt.Fprintf(os.Stderr, "seeded %s for %s in %s\n", cfg.DatabasePath, userID, cfg.OrganizationID)
	}

	if secret == "" {
		if skipSeed {
			exit(errors.New("-token-only needs -secret"))
		}
		return
	}
	parsedRole, err := identity.ParseRole(role)
	if err != nil {
		exit(err)
	}
	token, err := mintToken(secret, userID, cfg.OrganizationID, parsedRole, ttl)
	if err != nil {
		exit(err)
	}
	fmt.Println(token)
}

func seed(cfg config.Config, userID string) error {
	s, err := store.Open(cfg.DatabasePath, cfg.OrganizationID)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.SeedDemo(ctx, userID, time.Now().UTC())
}

func mintToken(secret, userID, orgID string, role identity.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"org_id":   orgID,
		"org_role": string(role),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "seeddemo: %v\n", err)
	os.Exit(1)
}
