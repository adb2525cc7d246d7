package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the remote services and methods in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()
			registry, err := s.env.Registry.Get()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range registry.Names() {
				def, _ := registry.Service(name)
				fmt.Fprintf(out, "%s\n", name)
				for _, m := range def.Methods {
					fmt.Fprintf(out, "  %s(%s)", m.Name, strings.Join(m.Params, ", "))
					if m.Returns != "" {
						fmt.Fprintf(out, " -> %s", m.Returns)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
}
