package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/gtfs"
	"github.com/travigo/raptor/pkg/redis_client"
	"github.com/travigo/raptor/pkg/resultcache"
)

// Setup loads the configured feed and connects the range query cache when it is enabled.
func Setup(ctx context.Context, cfg config.Config) (*Planner, error) {
	tt, err := gtfs.Load(cfg.Feed.Path, gtfs.NewOptions(cfg.Feed))
	if err != nil {
		return nil, fmt.Errorf("load feed %s: %w", cfg.Feed.Path, err)
	}

	p := New(tt, cfg.Routing)

	p.Version, err = FeedVersion(cfg.Feed)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		if err := redis_client.Connect(ctx, cfg.Cache.Redis); err != nil {
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.Cache.Redis.Address, err)
		}
		p.Cache = resultcache.New(redis_client.Client, cfg.Cache.Expiration)

		log.Info().Str("address", cfg.Cache.Redis.Address).Dur("expiration", cfg.Cache.Expiration).Msg("Range query cache enabled")
	}

	return p, nil
}

// FeedVersion identifies a loaded feed: a new file on disk or other load options give a new version.
func FeedVersion(feed config.Feed) (string, error) {
	info, err := os.Stat(feed.Path)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s:%d:%s:%s:%d",
		filepath.Base(feed.Path),
		info.ModTime().Unix(),
		feed.Date,
		strings.Join(feed.Agencies, ","),
		feed.StationTransferTime,
	), nil
}
