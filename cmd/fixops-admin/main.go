// fixops-admin creates users from the command line. The API only lets
// admins create users, so the first admin has to come from here.
package main

import (
	"context"
	"flag"
	"os"

	"fixops/internal/auth"
	"fixops/internal/cli"
	"fixops/internal/core"
	applog "fixops/internal/log"
)

func main() {
	username := flag.String("username", "", "username for the new user")
	password := flag.String("password", "", "password for the new user (min 8 characters)")
	role := flag.String("role", string(core.RoleAdmin), "role: admin, manager or employee")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentAuth)
	cfg := cli.LoadAndValidateConfig(logger)

	if *username == "" || *password == "" {
		logger.Error("Both -username and -password are required")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		logger.Error("Invalid password", "error", err)
		os.Exit(1)
	}

	user := core.User{
		Username:     *username,
		PasswordHash: hash,
		Role:         core.Role(*role),
	}
	if err := user.Validate(); err != nil {
		logger.Error("Invalid user", "error", err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	id, err := repo.CreateUser(context.Background(), user)
	if err != nil {
		logger.Error("Failed to create user", "error", err, "username", *username)
		os.Exit(1)
	}

	logger.Info("User created", "id", id, "username", *username, "role", *role)
}
