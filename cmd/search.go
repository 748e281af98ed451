package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search one or all sources for a title",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(nil)
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
		defer a.Close()

		query := strings.Join(args, " ")
		results, errs, err := a.engine.Search(ctx, query, searchSource)
		if err != nil {
			fmt.Printf("Failed to search for %q: %v\n", query, err)
			return
		}

		for _, e := range errs {
			a.log.Warn().Err(e.Err).Str("source", e.Source).Msg("source failed")
		}

		if searchLimit > 0 && len(results) > searchLimit {
			results = results[:searchLimit]
		}

		if asJSON {
			printJSON(results)
			return
		}

		if len(results) == 0 {
			fmt.Printf("No results for %q\n", query)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MATCH\tSOURCE\tTITLE\tRATING\tYEAR\tURL")
		for _, r := range results {
			fmt.Fprintf(w, "%d%%\t%s\t%s\t%s\t%s\t%s\n", r.Similarity, r.Source, r.Title, rating(r.Rating), year(r.Year), r.URL)
		}
		_ = w.Flush()
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details <title url>",
	Short: "Show a title with its chapter list",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(nil)
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
		defer a.Close()

		title, err := a.engine.GetDetails(ctx, args[0])
		if err != nil {
			fmt.Printf("Failed to get details for %q: %v\n", args[0], err)
			return
		}

		if asJSON {
			printJSON(title)
			return
		}

		fmt.Println(title.Title)
		if len(title.AltTitles) > 0 {
			fmt.Println("Also known as:", strings.Join(title.AltTitles, ", "))
		}
		if len(title.Genres) > 0 {
			fmt.Println("Genres:", strings.Join(title.Genres, ", "))
		}
		if title.Description != "" {
			fmt.Println()
			fmt.Println(title.Description)
		}
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NUM\tCHAPTER\tURL")
		for _, c := range title.Chapters {
			fmt.Fprintf(w, "%g\t%s\t%s\n", c.Number, c.Title, c.URL)
		}
		_ = w.Flush()
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images <chapter url>",
	Short: "List the page images of a chapter",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(nil)
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
		defer a.Close()

		images, err := a.engine.GetChapterImages(ctx, args[0])
		if err != nil {
			fmt.Printf("Failed to get images for %q: %v\n", args[0], err)
			return
		}

		if asJSON {
			printJSON(images)
			return
		}
		for _, u := range images {
			fmt.Println(u)
		}
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the enabled sources",
	Run: func(_ *cobra.Command, _ []string) {
		a, err := newApp(nil)
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
		defer a.Close()

		for _, name := range a.engine.Sources() {
			fmt.Println(name)
		}
	},
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Println("Failed to encode json:", err)
	}
}

func rating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

func year(y *int) string {
	if y == nil {
		return "-"
	}
	return strconv.Itoa(*y)
}
