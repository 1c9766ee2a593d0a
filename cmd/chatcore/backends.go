package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haowjy/meridian-chat-core/backends"
)

func newBackendsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available generation backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range backends.NewRegistry().Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
