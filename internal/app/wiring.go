package app

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/cache"
	"github.com/specialistvlad/buildgridgo/internal/config"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/notify"
	"github.com/specialistvlad/buildgridgo/internal/objectstore"
	"github.com/specialistvlad/buildgridgo/internal/publish"
)

const notifyDialTimeout = 10 * time.Second

// cacheManager returns nil when the pipeline has no cache section.
func (a *App) cacheManager(ctx context.Context, c *config.Cache) (*cache.Manager, error) {
	if c == nil {
		return nil, nil
	}
	var store cache.Store
	switch c.Store {
	case "s3":
		cfg := objectstore.Config{
			Endpoint:  c.Endpoint,
			Bucket:    c.Bucket,
			Prefix:    c.Prefix,
			Region:    c.Region,
			AccessKey: a.getenv(c.AccessKeyEnv),
			SecretKey: a.getenv(c.SecretKeyEnv),
			UseSSL:    c.UseSSL,
		}
		client, err := objectstore.NewMinIOClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("cache bucket: %w", err)
		}
		if err := objectstore.EnsureBucket(ctx, client, cfg); err != nil {
			return nil, fmt.Errorf("cache bucket: %w", err)
		}
		if store, err = cache.NewBucketStore(client, cfg.Bucket, cfg.Prefix); err != nil {
			return nil, err
		}
	default:
		local, err := cache.NewLocalStore(c.Dir)
		if err != nil {
			return nil, err
		}
		store = local
	}
	ctxlog.FromContext(ctx).Debug("Cache store configured.", "store", c.Store)
	return cache.NewManager(store, ""), nil
}

// publisherFor returns nil when the pipeline has no deploy section.
func (a *App) publisherFor(d *config.Deploy) (publish.Publisher, error) {
	if a.publisher != nil {
		return a.publisher, nil
	}
	if d == nil {
		return nil, nil
	}
	switch d.Provider {
	case "s3":
		return publish.NewBucket(objectstore.Config{
			Endpoint: d.Endpoint,
			Bucket:   d.Bucket,
			Prefix:   d.Prefix,
			Region:   d.Region,
			UseSSL:   d.UseSSL,
		})
	default:
		return publish.NewGitHub(d.APIURL, d.Repository)
	}
}

func (a *App) credential(d *config.Deploy) string {
	if d == nil {
		return ""
	}
	return a.getenv(d.TokenEnv)
}

// notifierFor never fails: an unreachable endpoint only costs the events.
func (a *App) notifierFor(ctx context.Context, n *config.Notify) notify.Notifier {
	if a.notifier != nil {
		return a.notifier
	}
	if n == nil {
		return notify.Nop{}
	}
	dialCtx, cancel := context.WithTimeout(ctx, notifyDialTimeout)
	defer cancel()
	s, err := notify.Dial(dialCtx, notify.Options{
		URL:                n.URL,
		Namespace:          n.Namespace,
		Event:              n.Event,
		InsecureSkipVerify: n.InsecureSkipVerify,
	})
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Notifier unavailable, continuing without events.", "error", err)
		return notify.Nop{}
	}
	return s
}
