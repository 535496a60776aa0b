package ctl

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"sampled/internal/config"
	"sampled/internal/manager"
	"sampled/internal/registry"
)

// resolveRoot picks the cache root: the flag wins, then the config file,
// then the built-in default.
func resolveRoot(opts *options) (string, error) {
	if opts.cacheRoot != "" {
		return opts.cacheRoot, nil
	}
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return "", err
		}
		return cfg.ApplyDefaults().CacheRoot, nil
	}
	return config.Config{}.ApplyDefaults().CacheRoot, nil
}

func fnSample(opts *options, model, prompt string, n int, replication bool) error {
	if opts.configPath == "" {
		return fmt.Errorf("sample requires --config")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.cacheRoot != "" {
		cfg.CacheRoot = opts.cacheRoot
	}
	if replication {
		cfg.Replication = true
	}
	m, err := manager.New(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug().Str("model", model).Int("n", n).Msg("sampling")
	out, err := m.Sample(ctx, model, prompt, n)
	if err != nil {
		return err
	}
	for i, text := range out {
		if i > 0 {
			fmt.Println("---")
		}
		fmt.Println(text)
	}
	return nil
}

func fnList(opts *options, long bool) error {
	root, err := resolveRoot(opts)
	if err != nil {
		return err
	}
	parts, err := registry.Scan(root)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		log.Info().Str("root", root).Msg("no recorded partitions")
		return nil
	}
	for _, p := range parts {
		fmt.Printf("%s_%s\t%d prompts\t%d samples\n", p.Alias, p.Temperature, len(p.Fingerprints), p.Samples())
		if !long {
			continue
		}
		for _, f := range p.Fingerprints {
			fmt.Printf("  %s\t%d\n", f.Hash, f.Count)
		}
	}
	return nil
}

func fnVerify(opts *options) error {
	root, err := resolveRoot(opts)
	if err != nil {
		return err
	}
	parts, err := registry.Scan(root)
	if err != nil {
		return err
	}
	errs := registry.Verify(parts)
	for _, e := range errs {
		log.Error().Msg(e.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d broken sequences", len(errs))
	}
	log.Info().Int("partitions", len(parts)).Msg("all recorded sequences contiguous")
	return nil
}
