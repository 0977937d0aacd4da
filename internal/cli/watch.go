package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgallion1/isdaudit/internal/parser"
	"github.com/dgallion1/isdaudit/internal/pipeline"
)

type watchCmd struct {
	app         *app
	initialScan bool
}

func newWatchCmd(a *app) *cobra.Command {
	wc := &watchCmd{app: a}
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Extract documents as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  wc.run,
	}
	cmd.Flags().BoolVar(&wc.initialScan, "initial-scan", false, "Also extract documents already in the directory")
	return cmd
}

func (wc *watchCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := wc.app.log.With("component", "watcher")

	paths, err := watchDir(ctx, args[0], wc.app.cfg.WatchDebounce, wc.initialScan, log)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(pipeline.Options{
		MaxQueueSize: wc.app.cfg.MaxQueueSize,
		JobTTL:       wc.app.cfg.JobTTL,
	}, wc.app.deps(), wc.app.log)
	orch.Start(ctx)
	defer orch.Stop()

	log.Info("watching", "dir", args[0])
	out := cmd.OutOrStdout()
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	defer wg.Wait()

	for path := range paths {
		data, err := readLimited(path, wc.app.cfg.MaxFileBytes)
		if err != nil {
			log.Error("skipping file", "path", path, "error", err)
			continue
		}
		job := pipeline.NewJob(filepath.Base(path), data, false)
		if err := orch.Submit(job); err != nil {
			log.Error("dropping file", "path", path, "error", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := job.Wait(ctx)
			if err != nil {
				return
			}
			district := ""
			if snap.Result != nil {
				district = snap.Result.Record.Label()
			}
			mu.Lock()
			fmt.Fprintf(out, "%s\t%s\t%s\n", path, snap.Status, district)
			mu.Unlock()
		}()
	}
	return nil
}

// watchDir emits supported documents created or written under root,
// coalescing bursts of events for the same file within debounce. The
// channel closes when ctx is done.
func watchDir(ctx context.Context, root string, debounce time.Duration, initialScan bool, log *slog.Logger) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	var existing []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if initialScan && parser.IsSupportedExtension(path) {
			existing = append(existing, path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	out := make(chan string, 256)
	go func() {
		defer close(out)
		defer w.Close()

		for _, p := range existing {
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}

		pending := map[string]time.Time{}
		tick := debounce / 2
		if tick < 10*time.Millisecond {
			tick = 10 * time.Millisecond
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						if err := w.Add(e.Name); err != nil {
							log.Warn("failed to watch new directory", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if parser.IsSupportedExtension(e.Name) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
					pending[e.Name] = time.Now()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("watcher error", "error", err)
			case now := <-ticker.C:
				for p, seen := range pending {
					if now.Sub(seen) < debounce {
						continue
					}
					delete(pending, p)
					if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
						continue
					}
					select {
					case out <- p:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}
