package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// Config holds the settings needed to read trees.
type Config struct {
	// Owner and Name identify the repository to read.
	Owner string
	Name  string
	// Concurrency bounds parallel directory fetches.
	Concurrency int
	// MaxTextSize is the largest blob whose text is
	// kept. Larger blobs are known by oid only.
	MaxTextSize int
}

// Resolver fetches directory content from one
// repository.
type Resolver struct {
	api git.ContentAPI
	cfg Config
}

// New validates cfg and returns a Resolver.
func New(api git.ContentAPI, cfg Config) (*Resolver, error) {
	const errCtx = "creating content resolver"

	if api == nil {
		return nil, fmt.Errorf("%s: api must not be nil", errCtx)
	}

	if cfg.Owner == "" || cfg.Name == "" {
		return nil, fmt.Errorf(
			"%s: repository owner and name must be set", errCtx,
		)
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	if cfg.MaxTextSize <= 0 {
		cfg.MaxTextSize = 1 << 20
	}

	return &Resolver{api: api, cfg: cfg}, nil
}

// Shallow fetches the direct entries of dir at ref.
func (r *Resolver) Shallow(
	ctx context.Context,
	ref string,
	dir string,
	withText bool,
) (*Cache, error) {
	return r.Deep(ctx, ref, dir, 1, withText)
}

// Deep fetches dir at ref breadth-first, down to depth
// directory levels; depth <= 0 means no limit. Each
// level is fetched with bounded concurrency and must
// complete before the next starts. A missing root
// yields an empty cache; any other failure fails the
// whole fetch.
func (r *Resolver) Deep(
	ctx context.Context,
	ref string,
	dir string,
	depth int,
	withText bool,
) (*Cache, error) {
	const errCtx = "fetching directory content"

	cache := newCache(dir)
	frontier := []string{cache.root}

	for level := 0; len(frontier) > 0; level++ {
		if depth > 0 && level == depth {
			cache.pending = frontier

			slog.Debug(
				"directory fetch stopped at depth",
				"root", cache.root,
				"depth", depth,
				"pending", len(frontier),
			)

			break
		}

		listed, err := r.fetchLevel(ctx, ref, frontier, withText)
		if err != nil {
			if level == 0 && errors.Is(err, remote.ErrNotFound) {
				return cache, nil
			}

			return nil, fmt.Errorf(
				"%s: %s at %s: %w", errCtx, cache.root, ref, err,
			)
		}

		cache.exists = true

		var next []string

		for _, entries := range listed {
			for _, e := range entries {
				cache.add(r.trim(e))

				if e.Type == git.EntryTree {
					next = append(next, e.Path)
				}
			}
		}

		frontier = next
	}

	return cache, nil
}

// fetchLevel lists every directory of one level.
func (r *Resolver) fetchLevel(
	ctx context.Context,
	ref string,
	dirs []string,
	withText bool,
) ([][]git.TreeEntry, error) {
	listed := make([][]git.TreeEntry, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, d := range dirs {
		g.Go(func() error {
			entries, err := r.api.GetDirectoryContent(
				gctx, r.cfg.Owner, r.cfg.Name, ref, d, withText,
			)
			if err != nil {
				return err
			}

			listed[i] = entries

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return listed, nil
}

// trim drops decoded text the cache must not hold.
func (r *Resolver) trim(e git.TreeEntry) git.TreeEntry {
	e.Path = strings.Trim(e.Path, "/")

	if e.Binary || e.Size > r.cfg.MaxTextSize ||
		len(e.Text) > r.cfg.MaxTextSize {
		e.Text = ""
		e.HasText = false
	}

	return e
}
