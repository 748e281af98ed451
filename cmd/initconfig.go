package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"mangascout/internal/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a config template to dir or ~/.config/mangascout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var dir string
		if len(args) == 1 {
			dir = args[0]
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			dir = filepath.Join(home, ".config", "mangascout")
		}

		path, err := config.WriteTemplate(dir)
		if err != nil {
			return err
		}

		fmt.Println("Config written to:", path)
		return nil
	},
}
