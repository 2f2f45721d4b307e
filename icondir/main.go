package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-errors/errors"

	"github.com/andrewstucki/icondir"
)

const helpString = `Fingerprint the icons of a file or directory.

Usage: %s [flags] <filename|directory>

`

type file struct {
	Name     string   `json:"name"`
	Exported []string `json:"exported,omitempty"`
	*icondir.Info
}

type scanner struct {
	cfg    config
	logger *slog.Logger
	stdout io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("icondir", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, helpString, flags.Name())
		flags.PrintDefaults()
	}
	configPath := flags.String("config", "", "YAML config file")
	outputDir := flags.String("o", "", "export every decoded icon as PNG into this directory")
	workers := flags.Int("workers", 0, "number of files fingerprinted in parallel")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	watch := flags.Bool("watch", false, "fingerprint again whenever the target changes")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Unable to load config: %v\n", err)
		return 1
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	level, known := normalizeLevel(*logLevel)
	if known {
		cfg.LogLevel = level
	}

	s := &scanner{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.level()})),
		stdout: stdout,
	}
	if level != "" && !known {
		s.logger.Warn("unknown -log-level, keeping configured level", "log_level", *logLevel, "level", cfg.LogLevel)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	target := filepath.Clean(flags.Arg(0))
	if err := s.report(ctx, target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "File '%s' not found\n", target)
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *watch {
		if err := s.watch(ctx, target); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	return 0
}

func (s *scanner) report(ctx context.Context, target string) error {
	files, err := s.scan(ctx, target)
	if err != nil {
		return err
	}
	data, err := json.Marshal(files)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	_, err = fmt.Fprintln(s.stdout, string(data))
	return err
}

func (s *scanner) scan(ctx context.Context, target string) ([]file, error) {
	fileinfo, err := os.Stat(target)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	if fileinfo.IsDir() {
		return s.scanDirectory(ctx, target)
	}
	f, err := s.fingerprint(ctx, target)
	if err != nil {
		return nil, err
	}
	return []file{f}, nil
}

func (s *scanner) scanDirectory(ctx context.Context, dir string) ([]file, error) {
	var mutex sync.Mutex
	files := []file{}

	pool := newPool(s.cfg.Workers, s.logger)
	defer pool.Release()
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		isSymlink := info.Mode()&os.ModeSymlink > 0
		isEmpty := info.Size() == 0
		if info.IsDir() || isSymlink || isEmpty || !s.cfg.wants(path) {
			return nil
		}
		pool.Enqueue(func() {
			f, err := s.fingerprint(ctx, path)
			if err != nil {
				s.logger.Warn("unable to fingerprint", "path", path, "error", err)
				return
			}
			mutex.Lock()
			files = append(files, f)
			mutex.Unlock()
		})
		return nil
	})
	pool.Wait()
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (s *scanner) fingerprint(ctx context.Context, path string) (file, error) {
	f, err := os.Open(path)
	if err != nil {
		return file{}, errors.Wrap(err, 0)
	}
	defer f.Close()
	fileinfo, err := f.Stat()
	if err != nil {
		return file{}, errors.Wrap(err, 0)
	}
	info, err := icondir.Parse(f, int(fileinfo.Size()))
	if err != nil {
		return file{}, err
	}
	result := file{Name: path, Info: info}
	if s.cfg.OutputDir == "" || len(info.Containers) == 0 {
		return result, nil
	}

	icons, err := icondir.ExtractIcons(ctx, path, icondir.WithLogger(s.logger))
	if err != nil {
		s.logger.Warn("unable to extract icons", "path", path, "error", err)
		return result, nil
	}
	defer func() {
		for _, icon := range icons {
			icon.Close()
		}
	}()
	result.Exported, err = exportIcons(s.cfg.OutputDir, path, icons)
	if err != nil {
		s.logger.Warn("unable to export icons", "path", path, "error", err)
	}
	return result, nil
}
