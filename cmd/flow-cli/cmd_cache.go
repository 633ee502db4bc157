package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jan-server/services/flow-api/internal/infrastructure/cache"
	"jan-server/services/flow-api/internal/infrastructure/uploadcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the image upload cache",
	Long:  `Look up, seed, and count entries of the URL to media id upload cache.`,
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Show the media id cached for a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheGet,
}

var cacheSetCmd = &cobra.Command{
	Use:   "set <url> <media-id>",
	Short: "Record a media id for a URL",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheSet,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the cache backend and entry count",
	RunE:  runCacheStats,
}

func init() {
	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheSetCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}

func openUploadCache(cmd *cobra.Command) (uploadcache.Store, func(), error) {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return nil, nil, err
	}

	var redis *cache.RedisCache
	closeFn := func() {}
	if env.cfg.IsRedisUploadCache() {
		redis, err = cache.NewRedisCache(env.cfg.RedisURL, env.log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closeFn = func() { _ = redis.Close() }
	}
	return uploadcache.New(env.cfg, redis, env.log), closeFn, nil
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openUploadCache(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	url := args[0]
	id, ok := store.Get(cmd.Context(), url)
	if jsonOutput(cmd) {
		return printJSON(map[string]any{
			"key":      uploadcache.Digest(url),
			"found":    ok,
			"media_id": id,
		})
	}
	if !ok {
		return fmt.Errorf("no cached media id for %s", url)
	}
	fmt.Println(id)
	return nil
}

func runCacheSet(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openUploadCache(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := store.Set(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	fmt.Printf("Cached %s -> %s\n", uploadcache.Digest(args[0]), args[1])
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openUploadCache(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	entries := store.Len(cmd.Context())
	if jsonOutput(cmd) {
		return printJSON(map[string]any{"backend": store.Backend(), "entries": entries})
	}
	fmt.Printf("Backend: %s\n", store.Backend())
	fmt.Printf("Entries: %d\n", entries)
	return nil
}
