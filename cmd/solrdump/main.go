package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"github.com/parsely/gosolr/internal/util"
	"github.com/parsely/gosolr/solr"
)

func main() {
	solrURL := flag.String("url", "http://127.0.0.1:8983/solr/collection1", "solr core URL")
	query := flag.String("q", "*:*", "solr query")
	rows := flag.Int("rows", 100, "page size per fetch")
	max := flag.Int("max", 0, "maximum documents to dump (0 = all)")
	sortSpec := flag.String("sort", "", "solr sort spec, e.g. \"id asc\"")
	filters := flag.String("fq", "", "filter query")
	username := flag.String("user", "", "basic auth username")
	password := flag.String("pass", "", "basic auth password")
	output := flag.String("o", "", "output file (default stdout)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	util.SetupLogger(level)

	client, err := solr.New(*solrURL, solr.WithBasicAuth(*username, *password))
	if err != nil {
		slog.Error("failed to create solr client", "error", err)
		os.Exit(1)
	}

	params := url.Values{}
	params.Set("rows", strconv.Itoa(*rows))
	if *sortSpec != "" {
		params.Set("sort", *sortSpec)
	}
	if *filters != "" {
		params.Set("fq", *filters)
	}

	var cursorOpts []solr.CursorOption
	if *max > 0 {
		// WithMaxIndex bounds the highest zero-based index yielded.
		cursorOpts = append(cursorOpts, solr.WithMaxIndex(*max-1))
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			slog.Error("failed to create output file", "file", *output, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	ctx := context.Background()
	cur := solr.NewCursor(client, *query, params, cursorOpts...)

	total, err := cur.Size(ctx)
	if err != nil {
		slog.Error("initial fetch failed", "error", err)
		os.Exit(1)
	}
	slog.Info("dumping result set", "query", *query, "hits", total)

	enc := json.NewEncoder(out)
	dumped := 0
	for cur.Next(ctx) {
		if err := enc.Encode(cur.Document()); err != nil {
			slog.Error("failed to write document", "error", err)
			os.Exit(1)
		}
		dumped++
	}
	if err := cur.Err(); err != nil {
		slog.Error("iteration failed", "dumped", dumped, "error", err)
		os.Exit(1)
	}

	slog.Info("dump completed", "documents", dumped)
}
