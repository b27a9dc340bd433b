package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/cortex-backend/internal/app"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
)

var (
	userEmail string
	userName  string

	rootCmd = &cobra.Command{
		Use:           "cortexctl",
		Short:         "Operator tooling for the cortex backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE:  runMigrate,
	}
	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample tasks and drills (idempotent by title)",
		RunE:  runSeed,
	}
	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	userAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE:  runUserAdd,
	}
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}
	tokenIssueCmd = &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for an existing user",
		RunE:  runTokenIssue,
	}
	tasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "Manage the task catalogue",
	}
	generateDailyCmd = &cobra.Command{
		Use:   "generate-daily",
		Short: "Generate one task per role and difficulty now",
		RunE:  runGenerateDaily,
	}
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "Email address of the new user")
	userAddCmd.Flags().StringVar(&userName, "name", "", "Full name of the new user")
	_ = userAddCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().StringVar(&userEmail, "email", "", "Email address of the user")
	_ = tokenIssueCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(generateDailyCmd)
}

// withCore opens the database and services for one command.
func withCore(fn func(ctx context.Context, core *app.Core) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	core, err := app.NewCore(log)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(context.Background(), core)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withCore(func(ctx context.Context, core *app.Core) error {
		// NewCore has already run AutoMigrate.
		fmt.Println("Migration complete")
		return nil
	})
}

func runSeed(cmd *cobra.Command, args []string) error {
	return withCore(func(ctx context.Context, core *app.Core) error {
		report, err := core.Services.Catalog.Seed(ctx)
		if err != nil {
			return err
		}
		return outputJSON(report)
	})
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(userEmail)
	if email == "" {
		return errors.New("--email is required")
	}
	return withCore(func(ctx context.Context, core *app.Core) error {
		dbc := dbctx.Context{Ctx: ctx}
		existing, err := core.Repos.User.GetByEmail(dbc, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("user %s already exists", email)
		}
		u := &domain.User{Email: email, FullName: strings.TrimSpace(userName)}
		if err := core.Repos.User.Create(dbc, u); err != nil {
			return err
		}
		return outputJSON(u)
	})
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(userEmail)
	return withCore(func(ctx context.Context, core *app.Core) error {
		u, err := core.Repos.User.GetByEmail(dbctx.Context{Ctx: ctx}, email)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no user with email %s", email)
		}
		token, err := core.Services.Auth.IssueToken(u)
		if err != nil {
			return err
		}
		return outputJSON(map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   int(core.Services.Auth.GetAccessTTL().Seconds()),
		})
	})
}

func runGenerateDaily(cmd *cobra.Command, args []string) error {
	return withCore(func(ctx context.Context, core *app.Core) error {
		report, err := core.Services.Catalog.GenerateDailyTasks(ctx)
		if err != nil {
			return err
		}
		return outputJSON(report)
	})
}
