package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/hackboard/hackboard/internal/db"
	"github.com/hackboard/hackboard/internal/models"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		configPath string
		email      string
		password   string
		admin      bool
	)

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user and print their API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(cmd, configPath, args[0], email, password, admin)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hackboard.yaml", "path to Hackboard config file")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant administrator rights")
	return cmd
}

func runUserCreate(cmd *cobra.Command, configPath, username, email, password string, admin bool) error {
	out := cmd.OutOrStdout()

	if username == models.SystemUsername {
		return fmt.Errorf("username %q is reserved", username)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	var existing models.User
	err = gormDB.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return fmt.Errorf("user %q already exists", username)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("look up user: %w", err)
	}

	if password == "" {
		password, err = promptPassword(out)
		if err != nil {
			return err
		}
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	key, err := newAPIKey()
	if err != nil {
		return err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		APIKey:       key,
		IsAdmin:      admin,
	}
	if err := gormDB.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	role := "user"
	if admin {
		role = "administrator"
	}
	fmt.Fprintf(out, "Created %s %q (id %d)\n", role, user.Username, user.ID)
	fmt.Fprintf(out, "API key: %s\n", user.APIKey)
	return nil
}

// promptPassword reads the password twice from the terminal without echo.
func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; pass --password instead")
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

// newAPIKey generates a 32-hex-character random key.
func newAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate API key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
