package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/config"
	"github.com/okulab/okulab-api/internal/pkg/database"
	"github.com/okulab/okulab-api/internal/pkg/jwt"
)

// Local helper for manual API testing: prints a bearer token for an account.
// With no -account flag it seeds a fresh dev account and student first.
func main() {
	accountFlag := flag.String("account", "", "existing account id to mint a token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.ClosePostgres(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	var accountID uuid.UUID
	if *accountFlag != "" {
		accountID, err = uuid.Parse(*accountFlag)
		if err != nil {
			log.Fatalf("Invalid account id: %v", err)
		}

		var exists bool
		if err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID); err != nil {
			log.Fatalf("Failed to look up account: %v", err)
		}
		if !exists {
			log.Fatalf("Account %s not found", accountID)
		}
	} else {
		accountID = uuid.New()
		email := fmt.Sprintf("dev_%s@okulab.local", accountID.String()[:8])
		if _, err := db.ExecContext(ctx, `INSERT INTO accounts (id, email) VALUES ($1, $2)`, accountID, email); err != nil {
			log.Fatalf("Failed to seed account: %v", err)
		}

		studentID := uuid.New()
		if _, err := db.ExecContext(ctx, `INSERT INTO students (id, account_id, full_name) VALUES ($1, $2, 'Dev Student')`, studentID, accountID); err != nil {
			log.Fatalf("Failed to seed student: %v", err)
		}

		fmt.Println("Seeded dev account:")
		fmt.Printf("  account id: %s\n", accountID)
		fmt.Printf("  email:      %s\n", email)
		fmt.Printf("  student id: %s\n", studentID)
	}

	token, err := jwt.NewService(cfg.JWTSecret, *ttl).GenerateAccessToken(accountID)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("\nAuthorization: Bearer %s\n", token)
}
