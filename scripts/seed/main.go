package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/odyssey-erp/odyssey-auth/internal/app"
	"github.com/odyssey-erp/odyssey-auth/internal/auth"
	"github.com/odyssey-erp/odyssey-auth/internal/platform/db"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

type demoUser struct {
	username string
	first    string
	role     string
}

var demoUsers = []demoUser{
	{username: "alice", first: "Alice", role: "SELLER"},
	{username: "carol", first: "Carol", role: "ACCOUNTANT"},
	{username: "dave", first: "Dave", role: "MANAGER"},
	{username: "erin", first: "Erin", role: "USER"},
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	password := getenv("SEED_PASSWORD", "odyssey-demo")
	ctx := context.Background()

	pool, err := db.New(ctx, cfg.PoolConfig())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	logger := app.NewLogger(cfg)
	roleStore := rbac.NewPGRoleStore(pool)
	service, err := app.NewAuthService(cfg, app.AuthDeps{
		Users:  auth.NewRepository(pool),
		Roles:  roleStore,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	fmt.Println("→ Seeding RBAC...")
	result, err := app.NewBootstrapJob(cfg, roleStore, service, nil, logger).Run(ctx, false)
	if err != nil {
		log.Fatalf("seed rbac: %v", err)
	}
	fmt.Printf("  permissions=%d roles_created=%v admin_created=%t\n", result.Seed.Permissions, result.Seed.RolesCreated, result.AdminCreated)

	fmt.Println("→ Seeding demo users...")
	for _, u := range demoUsers {
		if err := seedUser(ctx, roleStore, service, u, password); err != nil {
			log.Fatalf("seed user %s: %v", u.username, err)
		}
	}
	fmt.Println("✓ Seed complete")
}

func seedUser(ctx context.Context, roles rbac.RoleStore, service *auth.Service, u demoUser, password string) error {
	role, err := roles.FindRoleByName(ctx, u.role)
	if err != nil {
		return err
	}
	_, err = service.Register(ctx, auth.RegisterInput{
		Username:  u.username,
		Password:  password,
		Email:     u.username + "@odyssey.local",
		FirstName: u.first,
		LastName:  "Demo",
		RoleIDs:   []int64{role.ID},
	})
	if errors.Is(err, shared.ErrConflict) {
		fmt.Printf("  %s exists, skipped\n", u.username)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("  %s (%s)\n", u.username, u.role)
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
