package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ernestjumbe/zimzimba-mobile/apiclient"
	"github.com/ernestjumbe/zimzimba-mobile/auth"
)

// passwordEnv supplies the password when --password is not given.
const passwordEnv = "ZIMZIMBA_PASSWORD"

func passwordFrom(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("password required: pass --password or set %s", passwordEnv)
}

// describeError turns API failures into a single readable line.
func describeError(err error) error {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		return err
	}
	if apiErr.IsNetwork() {
		return fmt.Errorf("could not reach the API: %s", apiErr.Message)
	}
	return fmt.Errorf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			resp, err := a.auth.Login(cmd.Context(), auth.Credentials{Email: email, Password: pw})
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", resp.User.Name, resp.User.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or "+passwordEnv+")")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(flags *globalFlags) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			resp, err := a.auth.Register(cmd.Context(), auth.Registration{Email: email, Password: pw, Name: name})
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s <%s>\n", resp.User.Name, resp.User.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or "+passwordEnv+")")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if local {
				a.session.Logout()
				fmt.Fprintln(cmd.OutOrStdout(), "Local session cleared")
				return nil
			}
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return describeError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		}),
	}

	cmd.Flags().BoolVar(&local, "local", false, "clear the stored session without calling the API")
	return cmd
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()

			if !a.session.IsAuthenticated() {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}

			user := a.session.User()
			if !offline {
				u, err := a.auth.CurrentUser(cmd.Context())
				if err != nil {
					return describeError(err)
				}
				user = &u
			}
			if user == nil {
				fmt.Fprintln(out, "Signed in, user unknown")
				return nil
			}

			fmt.Fprintf(out, "%s <%s>\nid: %s\n", user.Name, user.Email, user.ID)
			if user.Avatar != "" {
				fmt.Fprintf(out, "avatar: %s\n", user.Avatar)
			}

			exp, ok, err := a.session.TokenExpiry()
			switch {
			case errors.Is(err, auth.ErrNoToken):
			case err != nil:
				fmt.Fprintln(out, "token: unreadable")
			case !ok:
				fmt.Fprintln(out, "token: no expiry")
			case a.session.TokenExpired(time.Now()):
				fmt.Fprintf(out, "token: expired %s\n", exp.Local().Format(time.RFC1123))
			default:
				fmt.Fprintf(out, "token: expires %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "show the stored user without calling the API")
	return cmd
}

func newProfileCmd(flags *globalFlags) *cobra.Command {
	var name, avatar string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the signed-in user's name or avatar",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			var patch auth.UserPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("avatar") {
				patch.Avatar = &avatar
			}
			if patch.Name == nil && patch.Avatar == nil {
				return errors.New("nothing to update: pass --name or --avatar")
			}

			u, err := a.auth.UpdateProfile(cmd.Context(), patch)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s <%s>\n", u.Name, u.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "new avatar URL")
	return cmd
}
