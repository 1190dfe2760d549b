package main

import (
	"fmt"
	"log"

	"github.com/smartpark/parking-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Session Secret Generator for SmartPark")
	fmt.Println("===========================================")
	fmt.Println()

	sessionSecret, err := utils.GenerateSessionSecret()
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	adminPassword, err := utils.GenerateSecret(12)
	if err != nil {
		log.Fatalf("Failed to generate admin password: %v", err)
	}

	fmt.Println("✅ Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", sessionSecret)
	fmt.Printf("ADMIN_PASSWORD=%s\n", adminPassword)
	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
