package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect serialized package state",
	}
	show := &cobra.Command{
		Use:   "show [package]",
		Short: "Print stored state for one package, or list packages with state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()
			if len(args) == 0 {
				names, err := s.store.Names()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			state, ok, err := s.store.Load(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no state stored for %s", args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(state))
			return err
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear <package>",
		Short: "Delete stored state for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()
			return s.store.Delete(args[0])
		},
	}
	cmd.AddCommand(show, clearCmd)
	return cmd
}
