package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/pkg/database"
	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "quizctl",
		Short:         "Admin tasks for the synonym quest database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedBadgesCmd())
	rootCmd.AddCommand(importWordsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: a logger and an open database.
type env struct {
	db     *sqlx.DB
	logger *zap.SugaredLogger
}

func openEnv() (*env, func(), error) {
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		_ = lg.Sync()
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	closeFn := func() {
		_ = db.Close()
		_ = lg.Sync()
	}
	return &env{db: db, logger: lg.Sugar()}, closeFn, nil
}
