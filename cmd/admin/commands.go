package main

import (
	"context"
	"fmt"
	"time"

	"forgedb/internal/bootstrap"
	"forgedb/internal/config"
	"forgedb/internal/database"
	"forgedb/internal/repository"
	"forgedb/internal/seed"
	"forgedb/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type opener func() (*config.Config, *gorm.DB, error)

const commandTimeout = 30 * time.Second

// withDB opens the database for one command run and closes it afterwards.
func withDB(open opener, fn func(ctx context.Context, cfg *config.Config, db *gorm.DB) error) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, cfg, db)
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "ForgeDB administration",
		Long:          `Promote and demote administrators, bootstrap the first admin and migrate the schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSetAdminCmd(open, "promote", "Grant admin rights to a user", true),
		newSetAdminCmd(open, "demote", "Revoke admin rights from a user", false),
		newListAdminsCmd(open),
		newSeedAdminCmd(open),
		newMigrateCmd(open),
	)
	return root
}

func newSetAdminCmd(open opener, use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(open, func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				users := service.NewUserService(repository.NewUserRepository(db))
				user, err := users.SetAdminByEmail(ctx, 0, args[0], isAdmin)
				if err != nil {
					return err
				}
				verb := "promoted to"
				if !isAdmin {
					verb = "demoted from"
				}
				cmd.Printf("%s (ID: %d) %s admin\n", user.Email, user.ID, verb)
				return nil
			})
		},
	}
}

func newListAdminsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List all administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(open, func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				admins, err := service.NewUserService(repository.NewUserRepository(db)).ListAdmins(ctx)
				if err != nil {
					return err
				}
				if len(admins) == 0 {
					cmd.Println("No admins found")
					return nil
				}
				for _, admin := range admins {
					cmd.Printf("ID: %d | Name: %s | Email: %s\n", admin.ID, admin.DisplayName(), admin.Email)
				}
				return nil
			})
		},
	}
}

func newSeedAdminCmd(open opener) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or promote the bootstrap admin account",
		Long:  `Uses --email/--password, falling back to ADMIN_EMAIL and ADMIN_PASSWORD. An existing account keeps its password.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(open, func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
				if email == "" {
					email = cfg.AdminEmail
				}
				if password == "" {
					password = cfg.AdminPassword
				}
				if email == "" {
					return fmt.Errorf("an admin email is required (--email or ADMIN_EMAIL)")
				}

				created, err := seed.EnsureAdmin(ctx, repository.NewUserRepository(db), bootstrap.HashPassword, email, password)
				if err != nil {
					return err
				}
				if created {
					cmd.Printf("Created admin %s\n", email)
				} else {
					cmd.Printf("%s is an admin\n", email)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "password used when the account is created")
	return cmd
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(open, func(_ context.Context, cfg *config.Config, db *gorm.DB) error {
				if err := database.Migrate(db, cfg.ContentBackend); err != nil {
					return err
				}
				cmd.Printf("Migrated tables for content backend %q\n", cfg.ContentBackend)
				return nil
			})
		},
	}
}
