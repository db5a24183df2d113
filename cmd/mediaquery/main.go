package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"media-picker/internal/dispatcher"
	"media-picker/internal/logging"
	"media-picker/internal/mapper"
	"media-picker/internal/mediaindex"
	"media-picker/internal/mediatypes"
	"media-picker/internal/query"
)

const (
	// Default timeout for one query run
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
	// Buckets queried at once with --all-buckets
	bucketConcurrency = 4
)

type options struct {
	dbPath           string
	bucket           string
	limit            int
	offset           int
	inverted         bool
	exclude          []string
	shape            string
	strict           bool
	ignoreExclusions bool
	videoFallback    string
	allBuckets       bool
	jsonOutput       bool
	verbose          bool
}

func main() {
	// Cancel on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if err := newRootCommand(os.Stdout, isTTY).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer, isTTY bool) *cobra.Command {
	opts := &options{}

	command := &cobra.Command{
		Use:   "mediaquery",
		Short: "Query the media index the way the picker does",
		Long: `Run one media query against a media index database and print the records.

Output is a table on a terminal and JSON otherwise (or with --json).
With --all-buckets every album is queried concurrently.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.verbose {
				logging.SetLevel(logging.LevelDebug)
			}
			return run(cmd.Context(), opts, out, opts.jsonOutput || !isTTY)
		},
	}

	flags := command.Flags()
	flags.StringVar(&opts.dbPath, "db", defaultDBPath(), "Path to the media index database")
	flags.StringVarP(&opts.bucket, "bucket", "b", query.AllBuckets, "Bucket (album) id; 0 queries every bucket")
	flags.IntVarP(&opts.limit, "limit", "n", -1, "Maximum number of records (needs --offset)")
	flags.IntVar(&opts.offset, "offset", -1, "Number of records to skip (needs --limit)")
	flags.BoolVarP(&opts.inverted, "inverted", "i", false, "Oldest first")
	flags.StringSliceVarP(&opts.exclude, "exclude", "x", nil, "Mime categories to exclude (jpeg, png, gif, bmp, webp, heic, video)")
	flags.StringVar(&opts.shape, "shape", "record", "JSON output shape: record or map")
	flags.BoolVar(&opts.strict, "strict", false, "Abort on the first row that fails to map")
	flags.BoolVar(&opts.ignoreExclusions, "ignore-exclusions", false, "Ignore --exclude")
	flags.StringVar(&opts.videoFallback, "video-fallback", "zero", "Videos without metadata: zero or omit")
	flags.BoolVar(&opts.allBuckets, "all-buckets", false, "Query every bucket and group the results")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Always print JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	return command
}

func defaultDBPath() string {
	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	return filepath.Join(databaseDir, "media-index.db")
}

// buildRequest turns the flags into a dispatcher request.
func buildRequest(opts *options) (dispatcher.Request, error) {
	req := dispatcher.Request{
		Query: query.Request{
			BucketID: opts.bucket,
			Inverted: opts.inverted,
			Limit:    opts.limit,
			Offset:   opts.offset,
		},
		Mapping: mapper.Options{IgnoreExclusions: opts.ignoreExclusions},
	}

	if opts.strict {
		req.Mapping.Policy = mapper.Strict
	}

	switch opts.videoFallback {
	case "zero":
		req.Mapping.VideoFallback = mapper.FallbackZero
	case "omit":
		req.Mapping.VideoFallback = mapper.FallbackOmit
	default:
		return req, fmt.Errorf("invalid --video-fallback %q: want zero or omit", opts.videoFallback)
	}

	if opts.shape != "record" && opts.shape != "map" {
		return req, fmt.Errorf("invalid --shape %q: want record or map", opts.shape)
	}

	for _, name := range opts.exclude {
		mt, err := mediatypes.ParseMimeType(name)
		if err != nil {
			return req, fmt.Errorf("invalid --exclude: %w", err)
		}
		req.Mapping.Exclude = append(req.Mapping.Exclude, mt)
	}

	return req, nil
}

func run(ctx context.Context, opts *options, out io.Writer, asJSON bool) error {
	req, err := buildRequest(opts)
	if err != nil {
		return err
	}

	// Open creates missing databases; a typo should not leave an empty file behind
	if _, err := os.Stat(opts.dbPath); err != nil {
		return fmt.Errorf("media index not found (set --db or DATABASE_DIR): %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	index, err := mediaindex.Open(ctx, opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open media index: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			logging.Warn("failed to close media index: %v", err)
		}
	}()

	if opts.allBuckets {
		groups, err := queryAllBuckets(ctx, index, req)
		if err != nil {
			return err
		}
		if asJSON {
			return writeGroupsJSON(out, groups, opts.shape)
		}
		return writeGroupsTable(out, groups)
	}

	records, err := queryBucket(ctx, index, req)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, shapeRecords(records, opts.shape))
	}
	return writeTable(out, records)
}

// queryBucket runs one dispatcher task and receives its result on the
// calling goroutine.
func queryBucket(ctx context.Context, index *mediaindex.Index, req dispatcher.Request) ([]mapper.Record, error) {
	type result struct {
		records []mapper.Record
		err     error
	}

	calls := make(chan func(), 1)
	var res result

	task := dispatcher.New(index, req)
	task.SetDelivery(func(call func()) { calls <- call })
	task.SetListener(func(records []mapper.Record) { res.records = records })
	task.SetErrorListener(func(err error) { res.err = err })

	if err := task.Execute(ctx); err != nil {
		return nil, err
	}

	select {
	case call := <-calls:
		call()
		return res.records, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type bucketResult struct {
	Bucket  mediaindex.Bucket `json:"bucket"`
	Records []mapper.Record   `json:"records"`
}

// queryAllBuckets queries every real bucket concurrently, keeping the
// bucket listing order.
func queryAllBuckets(ctx context.Context, index *mediaindex.Index, req dispatcher.Request) ([]bucketResult, error) {
	buckets, err := index.Buckets(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]bucketResult, 0, len(buckets))
	for _, b := range buckets {
		if b.ID != query.AllBuckets {
			results = append(results, bucketResult{Bucket: b})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bucketConcurrency)
	for i := range results {
		i := i
		bucketReq := req
		bucketReq.Query.BucketID = results[i].Bucket.ID
		g.Go(func() error {
			records, err := dispatcher.Fetch(gctx, index, bucketReq)
			if err != nil {
				return fmt.Errorf("bucket %s: %w", bucketReq.Query.BucketID, err)
			}
			results[i].Records = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func shapeRecords(records []mapper.Record, shape string) any {
	if shape == "map" {
		return mapper.Maps(records)
	}
	return records
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeGroupsJSON(out io.Writer, groups []bucketResult, shape string) error {
	if shape != "map" {
		return writeJSON(out, groups)
	}

	type mapGroup struct {
		Bucket  mediaindex.Bucket `json:"bucket"`
		Records []map[string]any  `json:"records"`
	}
	shaped := make([]mapGroup, len(groups))
	for i, g := range groups {
		shaped[i] = mapGroup{Bucket: g.Bucket, Records: mapper.Maps(g.Records)}
	}
	return writeJSON(out, shaped)
}

func writeTable(out io.Writer, records []mapper.Record) error {
	tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBUCKET\tNAME\tMIME\tSIZE\tDURATION\tPATH")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Identifier, r.BucketName, r.OriginName, r.MimeType,
			dimensions(r), orDash(r.Duration), r.OriginPath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d records\n", len(records))
	return err
}

func writeGroupsTable(out io.Writer, groups []bucketResult) error {
	var errs []error
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s (%s)\n", g.Bucket.Name, g.Bucket.ID)
		errs = append(errs, writeTable(out, g.Records))
	}
	return errors.Join(errs...)
}

func dimensions(r mapper.Record) string {
	if r.OriginWidth == "" && r.OriginHeight == "" {
		return "-"
	}
	return r.OriginWidth + "x" + r.OriginHeight
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
