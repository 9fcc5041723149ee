package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ernestjumbe/zimzimba-mobile/kv"
	"github.com/ernestjumbe/zimzimba-mobile/theme"
)

func newThemeCmd(flags *globalFlags) *cobra.Command {
	var systemDark bool

	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the theme preference",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			mode := a.theme.Mode()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (effective: %s)\n", mode, a.theme.Resolve(systemDark))
			return nil
		}),
	}
	cmd.PersistentFlags().BoolVar(&systemDark, "system-dark", false, "treat the system appearance as dark when resolving")

	set := &cobra.Command{
		Use:       "set light|dark|system",
		Short:     "Set the theme mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark), string(theme.System)},
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			mode, err := theme.ParseMode(args[0])
			if err != nil {
				return err
			}
			if err := a.theme.SetTheme(mode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (effective: %s)\n", mode, a.theme.Resolve(systemDark))
			return nil
		}),
	}

	toggle := &cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.theme.Toggle())
			return nil
		}),
	}

	cmd.AddCommand(set, toggle)
	return cmd
}

func newStorageCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect the key-value storage",
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List every stored key",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			ks, err := a.typed.Keys(cmd.Context())
			if err != nil {
				return err
			}
			slices.Sort(ks)
			for _, k := range ks {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		}),
	}

	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the raw value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			v, ok, err := a.typed.GetString(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove KEY",
		Args:  cobra.ExactArgs(1),
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			return a.typed.Delete(cmd.Context(), args[0])
		}),
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every key, signing out and resetting preferences",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear %s storage without --yes", a.cfg.Storage.Driver)
			}
			if err := a.typed.Clear(cmd.Context()); err != nil {
				return err
			}
			a.queries.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Storage cleared")
			return nil
		}),
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")

	cmd.AddCommand(keys, get, del, clearCmd)
	return cmd
}

func newOnboardingCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Show whether onboarding has been completed",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			done, _, err := a.typed.GetBoolean(cmd.Context(), kv.KeyOnboardingCompleted)
			if err != nil {
				return err
			}
			if done {
				fmt.Fprintln(cmd.OutOrStdout(), "completed")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "not completed")
			}
			return nil
		}),
	}

	complete := &cobra.Command{
		Use:   "complete",
		Short: "Mark onboarding as completed",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			return a.typed.SetBoolean(cmd.Context(), kv.KeyOnboardingCompleted, true)
		}),
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Show onboarding again on next launch",
		Args:  cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			return a.typed.Delete(cmd.Context(), kv.KeyOnboardingCompleted)
		}),
	}

	cmd.AddCommand(complete, reset)
	return cmd
}
