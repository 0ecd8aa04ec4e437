package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range newRegistry().All() {
			line := p.Name()
			if cfg.Credentials(p.Name()).IsPresent() {
				line += " (credentials configured)"
			}
			fmt.Println(line)
		}
		return nil
	},
}
