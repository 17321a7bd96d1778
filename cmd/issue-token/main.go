// Command issue-token prints a signed staff token for the gateway API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"restro-system/config"
	"restro-system/internal/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	staffID := flag.Uint("id", 0, "staff id")
	name := flag.String("name", "", "staff name")
	role := flag.String("role", "waiter", "staff role (waiter, reception, manager)")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *staffID == 0 || *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	if cfg.Auth.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is not set")
	}
	utils.SetSecret(cfg.Auth.JWTSecret)

	token, exp, err := utils.GenerateToken(*staffID, *name, *role, *ttl)
	if err != nil {
		logrus.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(token)
	logrus.WithField("expires_at", exp.Format(time.RFC3339)).Info("token issued")
}
