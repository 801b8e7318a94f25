package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jjenkins/publiccomment/internal/service"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
	adminRole     string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account that can sign in to the admin API.

Example:
  ./publiccomment admin create --email ops@example.gov --name "Ops" --password 's3cret-pass'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdminService(func(ctx context.Context, admins *service.AdminService) error {
			admin, err := admins.Create(ctx, service.CreateAdminRequest{
				Email:    adminEmail,
				Password: adminPassword,
				Name:     adminName,
				Role:     adminRole,
			})
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", admin.Email, admin.ID)
			return nil
		})
	},
}

var adminPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Reset an admin's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdminService(func(ctx context.Context, admins *service.AdminService) error {
			a, err := admins.GetByEmail(ctx, adminEmail)
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("no admin with email %s", adminEmail)
			}
			if err != nil {
				return err
			}
			if err := admins.ChangePassword(ctx, a.ID, adminPassword); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", a.Email)
			return nil
		})
	},
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdminService(func(ctx context.Context, admins *service.AdminService) error {
			all, err := admins.List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tNAME\tROLE\tACTIVE\tLAST LOGIN")
			for _, a := range all {
				last := "never"
				if a.LastLogin != nil {
					last = a.LastLogin.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", a.Email, a.Name, a.Role, a.IsActive, last)
			}
			return tw.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd, adminPasswdCmd, adminListCmd)

	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "Display name")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "Initial password")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", "admin", "Role")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminPasswdCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address")
	adminPasswdCmd.Flags().StringVar(&adminPassword, "password", "", "New password")
	_ = adminPasswdCmd.MarkFlagRequired("email")
	_ = adminPasswdCmd.MarkFlagRequired("password")
}

func withAdminService(fn func(context.Context, *service.AdminService) error) error {
	db, err := connectDB()
	if err != nil {
		return err
	}
	defer db.Close()

	st := newStores(db)
	return fn(context.Background(), service.NewAdminService(st.admins, 0, logger))
}

// describe flattens validation details into a readable CLI error
func describe(err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		msg := "invalid input:"
		for _, d := range verr.Details {
			msg += fmt.Sprintf("\n  %s: %s", d.Field, d.Message)
		}
		return errors.New(msg)
	}
	return err
}
