package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/database"
	"github.com/stemsi/hireflow-backend/internal/logger"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	policy, err := config.LoadPolicy(cfg.RBACPolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load RBAC policy")
	}

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	actors := repository.NewPgTxManager(pool).Repos().Actors

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")

	// Username
	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Println("Error: Username is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Role
	fmt.Printf("Enter Role (default %s): ", model.RoleRecruiter)
	role, _ := reader.ReadString('\n')
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = model.RoleRecruiter
	}
	if _, ok := policy.Roles[role]; !ok {
		fmt.Printf("Error: Unknown role %q\n", role)
		return
	}

	// Company
	var companyID *int64
	fmt.Print("Enter Company ID (blank for none): ")
	companyStr, _ := reader.ReadString('\n')
	companyStr = strings.TrimSpace(companyStr)
	if companyStr != "" {
		id, err := strconv.ParseInt(companyStr, 10, 64)
		if err != nil || id < 1 {
			fmt.Println("Error: Company ID must be a positive number")
			return
		}
		companyID = &id
	}
	if policy.IsCompanyScoped(role) && companyID == nil {
		fmt.Printf("Warning: %s users cannot sign in until a company is assigned\n", role)
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	// Hash Password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	user := &model.UserCredentials{
		Actor: model.Actor{
			Username:  username,
			Email:     email,
			Role:      role,
			CompanyID: companyID,
		},
		PasswordHash: string(hashedPassword),
	}

	if err := actors.CreateUser(ctx, user); err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! User '%s' (%s) created with ID: %d\n", user.Username, user.Email, user.UserID)
}
