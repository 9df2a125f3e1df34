package main

import (
	"fmt"
	"log"
	"os"

	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/pkg/auth"
)

// Prints an ADMIN_PASSWORD_HASH line for the operator login.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/generate_password.go <password>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading configuration:", err)
	}

	passwords := auth.NewPasswordManager(cfg)
	hash, err := passwords.HashPassword(os.Args[1])
	if err != nil {
		log.Fatal("Error generating hash:", err)
	}

	if err := passwords.VerifyPassword(os.Args[1], hash); err != nil {
		log.Fatal("Hash verification failed:", err)
	}

	fmt.Printf("ADMIN_EMAIL=%s\n", cfg.Admin.Email)
	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
}
