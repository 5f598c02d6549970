// grantadmin assigns a moderation role and dashboard password to a
// principal, creating the row if it does not exist yet. The principal
// ID must also be present in ADMIN_PRINCIPAL_IDS for the permission
// engine to honor the role.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tradepost/tradepost/internal/config"
	"github.com/tradepost/tradepost/internal/domain/principal"
	"github.com/tradepost/tradepost/internal/infrastructure/postgres"
)

func main() {
	var (
		id       = flag.Int64("id", 0, "principal id (required)")
		role     = flag.String("role", string(principal.RoleAdmin), "role: moderator, admin or super_admin")
		password = flag.String("password", "", "dashboard password (required)")
		username = flag.String("username", "", "username, used only when creating a new principal")
	)
	flag.Parse()

	if *id == 0 || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	r := principal.Role(*role)
	if err := principal.ValidateRole(r); err != nil || r == principal.RoleNone {
		log.Fatalf("invalid role %q", *role)
	}
	if err := principal.ValidatePassword(*password); err != nil {
		log.Fatalf("weak password: %v", err)
	}
	hash, err := principal.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewPrincipalRepository(pool)
	p, err := repo.GetByID(ctx, *id)
	if err != nil {
		log.Fatalf("load principal: %v", err)
	}

	now := time.Now().UTC()
	if p == nil {
		p = &principal.Principal{
			ID:        *id,
			Username:  *username,
			Active:    true,
			CreatedAt: now,
		}
		p.Role = r
		p.PasswordHash = hash
		p.UpdatedAt = now
		if err := repo.Create(ctx, p); err != nil {
			log.Fatalf("create principal: %v", err)
		}
		fmt.Printf("created principal %d with role %s\n", p.ID, p.Role)
		return
	}

	p.Role = r
	p.PasswordHash = hash
	p.UpdatedAt = now
	if err := repo.Update(ctx, p); err != nil {
		log.Fatalf("update principal: %v", err)
	}
	fmt.Printf("updated principal %d to role %s\n", p.ID, p.Role)
}
