package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mangascout",
	Short: "Search, inspect and download manga from Russian-language sites.",
	Long: `Search, inspect and download manga from Russian-language sites.

Supported sources are the Grouple sites (ReadManga, MintManga and others),
Desu, MangaBuff, Remanga and MangaLib. Sources can be tuned or disabled in
the sources section of the config.

Provide a configuration file using one of the following methods:
1. Use the --config <path> or -c <path> flag.
2. Place a config.yaml file in the current directory.
3. Place a config.yaml file in the default user configuration directory (e.g., ~/.config/mangascout/).
4. Place a config.yaml file a folder inside your home directory (e.g., ~/.mangascout/).`,
}

func init() {
	initRootFlags()
	initSearchFlags()
	initDownloadFlags()
	initServeFlags()

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(serveCmd)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
