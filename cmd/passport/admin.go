package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vbonduro/propertypassport/internal/db"
	"github.com/vbonduro/propertypassport/internal/store"
	"github.com/vbonduro/propertypassport/internal/web"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateStepCmd(a, db.Up, "Apply pending migrations"),
		migrateStepCmd(a, db.Down, "Revert applied migrations"),
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(a, db.Connect, func(database *sql.DB) error {
					version, dirty, err := db.Version(database)
					if err != nil {
						return err
					}
					state := "clean"
					if dirty {
						state = "dirty"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (%s)\n", version, state)
					return nil
				})
			},
		},
	)
	return cmd
}

func migrateStepCmd(a *app, direction db.Direction, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 0 {
				return errors.New("--steps must not be negative")
			}
			return withDB(a, db.Connect, func(database *sql.DB) error {
				if err := db.Migrate(database, direction, steps); err != nil {
					return err
				}
				version, _, err := db.Version(database)
				if err != nil {
					return err
				}
				a.logger.Info("migration complete", "direction", direction, "version", version)
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			})
		},
	}
	cmd.Flags().Int("steps", 0, "number of migrations to apply or revert (0 means all)")
	return cmd
}

func cacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the government-data cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(a, db.Open, func(database *sql.DB) error {
				cache, closeCache, err := newCache(cmd.Context(), a.cfg, database, a.logger)
				if err != nil {
					return err
				}
				defer closeCache()
				n, err := cache.Purge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries\n", n)
				return nil
			})
		},
	})
	return cmd
}

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	grant := &cobra.Command{
		Use:   "grant-admin <email>",
		Short: "Give a user platform admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revoke, _ := cmd.Flags().GetBool("revoke")
			return withDB(a, db.Open, func(database *sql.DB) error {
				users := store.NewUserStore(database)
				u, err := users.GetByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if u == nil {
					return fmt.Errorf("no user with email %s; they must sign in once first", args[0])
				}
				if err := users.SetAdmin(cmd.Context(), u.ID, !revoke); err != nil {
					return err
				}
				a.logger.Info("updated admin flag", "user_id", u.ID, "admin", !revoke)
				fmt.Fprintf(cmd.OutOrStdout(), "%s admin=%t\n", u.Email, !revoke)
				return nil
			})
		},
	}
	grant.Flags().Bool("revoke", false, "remove admin rights instead")
	cmd.AddCommand(grant)
	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subFlag, _ := cmd.Flags().GetString("sub")
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			if len(a.cfg.JWTSecret) < 32 {
				return errors.New("JWT_SECRET must be at least 32 bytes")
			}
			if email == "" {
				return errors.New("--email is required")
			}
			sub := uuid.New()
			if subFlag != "" {
				parsed, err := uuid.Parse(subFlag)
				if err != nil {
					return fmt.Errorf("invalid --sub: %w", err)
				}
				sub = parsed
			}
			token, err := web.SignSession([]byte(a.cfg.JWTSecret), sub, email, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("sub", "", "user id (random when empty)")
	cmd.Flags().String("email", "", "user email")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// withDB opens the configured database with open, runs fn and closes it.
func withDB(a *app, open func(string) (*sql.DB, error), fn func(*sql.DB) error) error {
	database, err := open(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			a.logger.Error("failed to close database", "error", err)
		}
	}()
	return fn(database)
}
