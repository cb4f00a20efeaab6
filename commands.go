package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"helixclips/app/client/twitch"
	"helixclips/app/http/server"
	"helixclips/app/service/archive"
	"helixclips/app/service/clips"
	"helixclips/pkg/config"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/samber/do"
)

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type listOptions struct {
	broadcaster string
	game        string
	ids         string
	first       int
	after       string
	before      string
	all         bool
	limit       int
}

func parseListArgs(args []string) (*twitch.GetClipsParams, listOptions, error) {
	var opts listOptions

	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.StringVar(&opts.broadcaster, "broadcaster", "", "broadcaster user id")
	fs.StringVar(&opts.game, "game", "", "game id")
	fs.StringVar(&opts.ids, "id", "", "comma separated clip ids")
	fs.IntVar(&opts.first, "first", 0, "page size, 1..100")
	fs.StringVar(&opts.after, "after", "", "forward cursor")
	fs.StringVar(&opts.before, "before", "", "backward cursor")
	fs.BoolVar(&opts.all, "all", false, "follow cursors until exhausted")
	fs.IntVar(&opts.limit, "limit", 0, "with -all, stop after this many clips")
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	params := &twitch.GetClipsParams{
		First:  opts.first,
		After:  opts.after,
		Before: opts.before,
	}

	filters := 0
	if opts.broadcaster != "" {
		filters++
		params.FilterType = twitch.ClipFilterBroadcaster
		params.IDs = []string{opts.broadcaster}
	}
	if opts.game != "" {
		filters++
		params.FilterType = twitch.ClipFilterGame
		params.IDs = []string{opts.game}
	}
	if opts.ids != "" {
		filters++
		params.FilterType = twitch.ClipFilterID
		params.IDs = strings.Split(opts.ids, ",")
	}
	if filters != 1 {
		return nil, opts, fmt.Errorf("exactly one of -broadcaster, -game or -id is required")
	}

	return params, opts, nil
}

func runList(ctx context.Context, di *do.Injector, args []string) error {
	params, opts, err := parseListArgs(args)
	if err != nil {
		return err
	}

	client := do.MustInvoke[*twitch.Client](di)

	if opts.all {
		paginator := client.NewClipPaginator(*params)
		result, err := paginator.All(ctx, opts.limit)
		if err != nil {
			return err
		}
		return printJSON(&twitch.ClipPage{Data: result, Cursor: paginator.Cursor()})
	}

	page, err := client.GetClips(ctx, params)
	if err != nil {
		return err
	}

	return printJSON(page)
}

func runCreate(ctx context.Context, di *do.Injector, args []string) error {
	var params twitch.CreateClipParams

	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.StringVar(&params.BroadcasterID, "broadcaster", "", "broadcaster user id")
	fs.BoolVar(&params.HasDelay, "delay", false, "add the viewer delay before capturing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := do.MustInvoke[*twitch.Client](di).CreateClip(ctx, params)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, id)
	return err
}

func runSync(ctx context.Context, di *do.Injector, _ []string) error {
	report, err := do.MustInvoke[*clips.Service](di).Sync(ctx)
	if err != nil {
		return err
	}

	return printJSON(report)
}

func runArchive(ctx context.Context, di *do.Injector, args []string) error {
	cfg := do.MustInvoke[*config.Config](di)

	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	limit := fs.Int("limit", cfg.Sync.ArchiveBatchLimit, "maximum number of clips to archive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := do.Invoke[*archive.Service](di)
	if err != nil {
		return err
	}

	start := time.Now()
	n, err := svc.Run(ctx, *limit)
	slog.Info("Archive finished",
		slog.Int("archived", n),
		slog.Duration("elapsed", time.Since(start)),
	)

	return err
}

func runServe(ctx context.Context, di *do.Injector, _ []string) error {
	srv, err := do.Invoke[*server.Server](di)
	if err != nil {
		return err
	}

	if err = srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
