package cmd

import (
	"mangascout/internal/engine"

	"github.com/spf13/cobra"
)

var (
	configPath string

	searchSource string
	searchLimit  int
	asJSON       bool

	naming            string
	downloadDirectory string
	archiveFormat     string

	chapterNumbers string
	first          bool
	latest         bool

	listenAddr string
)

func initRootFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"specifies the path to your config file",
	)
}

func initSearchFlags() {
	searchCmd.Flags().StringVarP(
		&searchSource,
		"source",
		"s",
		engine.AllSources,
		"specifies the source to search, or all enabled sources",
	)
	searchCmd.Flags().IntVarP(
		&searchLimit,
		"limit",
		"n",
		20,
		"specifies how many results to show",
	)

	for _, c := range []*cobra.Command{searchCmd, detailsCmd, imagesCmd} {
		c.Flags().BoolVar(
			&asJSON,
			"json",
			false,
			"print the result as json",
		)
	}
}

func initDownloadFlags() {
	for _, c := range []*cobra.Command{downloadCmd, browseCmd} {
		c.Flags().StringVarP(
			&downloadDirectory,
			"downloadDirectory",
			"d",
			"",
			"specifies the directory where you want to save your downloads to. default: downloadLocation from config",
		)
		c.Flags().StringVarP(
			&naming,
			"naming",
			"n",
			"",
			"specifies the naming template you want to use for naming chapters. default: namingTemplate from config",
		)
		c.Flags().StringVarP(
			&archiveFormat,
			"archive",
			"a",
			"",
			"pack downloaded chapters as none, cbz or pdf. default: archiveFormat from config",
		)
	}

	downloadCmd.Flags().StringVarP(
		&chapterNumbers,
		"chapters",
		"C",
		"",
		"specifies the chapter numbers you want to download, e.g. 1-5,7,10.5",
	)
	downloadCmd.Flags().BoolVarP(
		&first,
		"first",
		"1",
		false,
		"download the first chapter",
	)
	downloadCmd.Flags().BoolVarP(
		&latest,
		"latest",
		"L",
		false,
		"download the latest chapter",
	)

	downloadCmd.MarkFlagsMutuallyExclusive("first", "chapters")
	downloadCmd.MarkFlagsMutuallyExclusive("latest", "chapters")
	downloadCmd.MarkFlagsMutuallyExclusive("first", "latest")
}

func initServeFlags() {
	serveCmd.Flags().StringVarP(
		&listenAddr,
		"listen",
		"l",
		"",
		"specifies the address the api listens on. default: listenAddr from config",
	)
}
