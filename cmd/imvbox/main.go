package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/manifoldco/promptui"

	"github.com/parsatv/imvbox/internal/api"
	"github.com/parsatv/imvbox/internal/util"
	"github.com/parsatv/imvbox/pkg/imvbox"
	"github.com/parsatv/imvbox/pkg/imvbox/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0F9D58")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))
)

func main() {
	debugFlag := flag.Bool("debug", false, "enable debug mode")
	moviesFlag := flag.Bool("movies", false, "list movies")
	seriesFlag := flag.Bool("series", false, "list TV series")
	pageFlag := flag.Int("page", 1, "listing page")
	sortFlag := flag.String("sort", "", "sort order (new-releases, most-viewed, alphabetic)")
	resolveFlag := flag.String("resolve", "", "resolve a playable video URL for a page URL")
	flag.Parse()

	util.SetDebugMode(*debugFlag)
	util.InitLogger()

	client, err := newClient()
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *resolveFlag != "":
		resolve(ctx, client, *resolveFlag)
	case *moviesFlag:
		listMovies(ctx, client, *pageFlag, types.SortBy(*sortFlag))
	case *seriesFlag:
		listSeries(ctx, client, *pageFlag, types.SortBy(*sortFlag))
	default:
		searchFlow(ctx, client)
	}
}

// newClient logs in when IMVBOX_EMAIL/IMVBOX_PASSWORD are set; play pages
// only serve full content to authenticated sessions.
func newClient() (*imvbox.Client, error) {
	email := os.Getenv("IMVBOX_EMAIL")
	password := os.Getenv("IMVBOX_PASSWORD")
	if email != "" && password != "" {
		return imvbox.NewClientWithLogin(email, password)
	}
	util.Warn("no IMVBOX_EMAIL/IMVBOX_PASSWORD set, only trailers will resolve")
	return imvbox.NewClient(), nil
}

func searchFlow(ctx context.Context, client *imvbox.Client) {
	query := strings.Join(flag.Args(), " ")
	if query == "" {
		var err error
		query, err = promptQuery()
		if err != nil {
			fatal(err)
		}
	}

	results, err := client.SearchWeb(ctx, query)
	if err != nil {
		if api.IsNoData(err) {
			fmt.Println(resultStyle.Render("Nothing found for \"" + query + "\""))
			return
		}
		fatal(err)
	}

	idx, err := fuzzyfinder.Find(results, func(i int) string {
		return fmt.Sprintf("[%s] %s", results[i].Type, results[i].Title)
	})
	if err != nil {
		fatal(err)
	}
	picked := results[idx]
	fmt.Println(titleStyle.Render(picked.Title))

	if picked.Type == types.MediaTypeMovie {
		if details, err := client.MovieDetails(ctx, picked.Slug); err == nil {
			printMovie(details)
		}
	}
	resolve(ctx, client, picked.URL)
}

func listMovies(ctx context.Context, client *imvbox.Client, page int, sortBy types.SortBy) {
	movies, hasNext, err := client.Movies(ctx, page, sortBy)
	if err != nil {
		fatal(err)
	}
	for _, m := range movies {
		line := m.Title
		if m.Year > 0 {
			line = fmt.Sprintf("%s (%d)", m.Title, m.Year)
		}
		fmt.Println(resultStyle.Render(line) + "  " + m.URL)
	}
	if hasNext {
		fmt.Printf("-- more on page %d --\n", page+1)
	}
}

func listSeries(ctx context.Context, client *imvbox.Client, page int, sortBy types.SortBy) {
	series, hasNext, err := client.Series(ctx, page, sortBy)
	if err != nil {
		fatal(err)
	}
	for _, s := range series {
		line := s.Title
		if s.TotalSeasons > 1 {
			line = fmt.Sprintf("%s (%d seasons)", s.Title, s.TotalSeasons)
		}
		fmt.Println(resultStyle.Render(line) + "  " + s.URL)
	}
	if hasNext {
		fmt.Printf("-- more on page %d --\n", page+1)
	}
}

func resolve(ctx context.Context, client *imvbox.Client, pageURL string) {
	util.Info("resolving video source", "url", pageURL)
	video, err := client.ResolveVideo(ctx, pageURL)
	if err != nil {
		switch {
		case api.IsNoData(err):
			fmt.Println(resultStyle.Render("No playable source: " + err.Error()))
		default:
			fatal(err)
		}
		return
	}
	fmt.Println(titleStyle.Render("Resolved ("+video.Quality+" / "+video.Host+"):"), video.URL)
}

func printMovie(m types.Movie) {
	if m.Description != "" {
		fmt.Println(m.Description)
	}
	var meta []string
	if m.Runtime > 0 {
		meta = append(meta, fmt.Sprintf("%d min", m.Runtime))
	}
	if m.Rating > 0 {
		meta = append(meta, fmt.Sprintf("★ %.1f", m.Rating))
	}
	if len(m.Genres) > 0 {
		meta = append(meta, strings.Join(m.Genres, ", "))
	}
	if len(meta) > 0 {
		fmt.Println(resultStyle.Render(strings.Join(meta, " · ")))
	}
}

func promptQuery() (string, error) {
	prompt := promptui.Prompt{
		Label: "Search IMVBox",
		Validate: func(s string) error {
			if len(strings.TrimSpace(s)) < 3 {
				return fmt.Errorf("enter at least 3 characters")
			}
			return nil
		},
	}
	return prompt.Run()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
	os.Exit(1)
}
