// Command wpcheck inspects the configured WordPress connection without
// starting the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bilgisen/wpsync/internal/config"
	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}
	cfg := config.FromEnv()

	pingCmd := flag.NewFlagSet("ping", flag.ExitOnError)
	postsCmd := flag.NewFlagSet("posts", flag.ExitOnError)
	termsCmd := flag.NewFlagSet("terms", flag.ExitOnError)

	conns := make(map[*flag.FlagSet]*wordpress.Connection)
	var verbose bool
	for _, fs := range []*flag.FlagSet{pingCmd, postsCmd, termsCmd} {
		conn := &wordpress.Connection{}
		fs.StringVar(&conn.BaseURL, "url", cfg.WordPress.APIURL, "WordPress REST root, e.g. https://example.org/wp-json (env: WP_API_URL)")
		fs.StringVar(&conn.Username, "user", cfg.WordPress.Username, "WordPress username (env: WP_USERNAME)")
		fs.StringVar(&conn.AppPassword, "password", cfg.WordPress.AppPassword, "Application password (env: WP_APP_PASSWORD)")
		fs.DurationVar(&conn.Timeout, "timeout", cfg.WordPress.Timeout, "Request timeout (env: WP_TIMEOUT)")
		fs.BoolVar(&verbose, "v", false, "Verbose logging")
		conns[fs] = conn
	}

	var since time.Duration
	var perPage, postID int
	postsCmd.DurationVar(&since, "since", 24*time.Hour, "Only posts modified within this window, 0 for all")
	postsCmd.IntVar(&perPage, "n", 10, "Number of posts to list")
	postsCmd.IntVar(&postID, "id", 0, "Show a single post instead of a listing")

	var kind string
	termsCmd.StringVar(&kind, "kind", "categories", "categories or tags")

	if len(os.Args) < 2 {
		fmt.Println("Usage: wpcheck [command] [options]")
		fmt.Println("Commands: ping, posts, terms")
		fmt.Println("\nFor command-specific options, use: wpcheck [command] -h")
		os.Exit(1)
	}

	var fs *flag.FlagSet
	switch os.Args[1] {
	case "ping":
		fs = pingCmd
	case "posts":
		fs = postsCmd
	case "terms":
		fs = termsCmd
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
	_ = fs.Parse(os.Args[2:])

	level := logger.Disabled
	if verbose {
		level = logger.DebugLevel
	}
	if err := logger.Init(logger.Config{Level: level, Output: "stderr", Pretty: true}); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	conn := *conns[fs]
	if err := conn.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	client := wordpress.NewClient(conn)
	ctx := context.Background()

	var err error
	switch fs {
	case pingCmd:
		err = ping(ctx, client)
	case postsCmd:
		if postID > 0 {
			err = showPost(ctx, client, postID)
		} else {
			err = listPosts(ctx, client, since, perPage)
		}
	case termsCmd:
		err = listTerms(ctx, client, kind)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func ping(ctx context.Context, client *wordpress.Client) error {
	res := client.TestConnection(ctx)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}

func listPosts(ctx context.Context, client *wordpress.Client, since time.Duration, n int) error {
	q := wordpress.PostQuery{PerPage: n, OrderBy: "modified", Order: "desc"}
	if since > 0 {
		q.ModifiedAfter = time.Now().Add(-since)
	}
	posts, err := client.GetPosts(ctx, q)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tLOCAL\tMODIFIED\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.Status, wordpress.ParseRemoteStatus(p.Status), p.Modified, wordpress.PlainText(p.Title.Rendered))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d post(s)\n", len(posts))
	return nil
}

func showPost(ctx context.Context, client *wordpress.Client, id int) error {
	post, err := client.GetPost(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("ID:       %d\n", post.ID)
	fmt.Printf("Title:    %s\n", wordpress.PlainText(post.Title.Rendered))
	fmt.Printf("Status:   %s (local: %s)\n", post.Status, wordpress.ParseRemoteStatus(post.Status))
	fmt.Printf("Modified: %s\n", post.Modified)
	fmt.Printf("Link:     %s\n", post.Link)
	fmt.Printf("Excerpt:  %s\n", wordpress.PlainText(post.Excerpt.Rendered))
	return nil
}

func listTerms(ctx context.Context, client *wordpress.Client, kind string) error {
	var (
		terms []models.Term
		err   error
	)
	switch kind {
	case "categories":
		terms, err = client.GetCategories(ctx)
	case "tags":
		terms, err = client.GetTags(ctx)
	default:
		return fmt.Errorf("unknown kind %q, expected categories or tags", kind)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tCOUNT\tNAME")
	for _, t := range terms {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", t.ID, t.Slug, t.Count, t.Name)
	}
	return w.Flush()
}
