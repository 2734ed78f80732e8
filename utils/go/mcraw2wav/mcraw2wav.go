// Command mcraw2wav extracts the synthesized files of raw captures.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	golog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mcrawfs/pkg/capture"
	"mcrawfs/pkg/dng"
	"mcrawfs/pkg/log"
	"mcrawfs/pkg/vfs"

	"gopkg.in/yaml.v2"
)

const usage = `extract audio and frames from raw captures
usage: mcraw2wav <captures dir> [config.yaml]

config:
  draft: false       # render frames at the draft scale
  draftScale: 2
  extractFrames: false  # write the .dng frames too
  outDir: ""            # default: next to the capture
  logDB: ""             # default: logs.db next to the captures`

type config struct {
	Draft         bool   `yaml:"draft"`
	DraftScale    int    `yaml:"draftScale"`
	ExtractFrames bool   `yaml:"extractFrames"`
	OutDir        string `yaml:"outDir"`
	LogDB         string `yaml:"logDB"`
}

func main() {
	if err := run(); err != nil {
		golog.Fatal(err)
	}
}

func run() error {
	args := os.Args
	if len(args) < 2 || len(args) > 3 {
		fmt.Println(usage)
		return nil
	}

	conf := config{DraftScale: 2}
	if len(args) == 3 {
		raw, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &conf); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	if conf.DraftScale < 1 {
		conf.DraftScale = 1
	}

	var captures []string
	walkFunc := func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%v %w", path, err)
		}
		if info.IsDir() || !strings.HasSuffix(path, ".mcap") {
			return nil
		}
		captures = append(captures, path)
		return nil
	}
	if err := filepath.WalkDir(args[1], walkFunc); err != nil {
		return err
	}

	fmt.Printf("Found %v captures.\n", len(captures))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	logger := log.NewLogger(wg)
	logger.Start(ctx)
	go logger.LogToStdout(ctx)

	logDB := log.NewStore(logDBPath(args[1], conf), wg)
	if err := logDB.Init(ctx); err != nil {
		return err
	}
	go logDB.SaveLogs(ctx, logger)

	for _, path := range captures {
		if err := extract(path, conf, logger); err != nil {
			fmt.Printf("%v: FAILED %v\n", path, err)
			continue
		}
		fmt.Printf("%v: OK\n", path)
	}

	cancel()
	wg.Wait()
	return nil
}

// logDBPath defaults to logs.db next to the captures.
func logDBPath(target string, conf config) string {
	if conf.LogDB != "" {
		return conf.LogDB
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, "logs.db")
	}
	return filepath.Join(filepath.Dir(target), "logs.db")
}

func extract(path string, conf config, logger *log.Logger) error {
	options := vfs.Options(0)
	if conf.Draft {
		options |= vfs.OptionDraft
	}

	v, err := vfs.New(vfs.Config{
		Path:       path,
		Options:    options,
		DraftScale: conf.DraftScale,
		NewDecoder: func(p string) (vfs.Decoder, error) {
			return capture.NewDecoder(p)
		},
		Encoder: dng.NewEncoder(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer v.Close()

	outDir := conf.OutDir
	if outDir == "" {
		outDir = strings.TrimSuffix(path, ".mcap")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, entry := range v.List("") {
		isFrame := strings.HasSuffix(entry.Name, ".dng")
		if isFrame && !conf.ExtractFrames {
			continue
		}

		buf := make([]byte, entry.Size)
		var n int
		if isFrame {
			n, err = readFrame(v, entry, options, buf)
			if err != nil {
				return fmt.Errorf("%v: %w", entry.Name, err)
			}
		} else {
			n = v.Read(entry, options, 0, buf, nil)
		}

		outPath := filepath.Join(outDir, entry.Name)
		if err := os.WriteFile(outPath, buf[:n], 0o600); err != nil {
			return fmt.Errorf("write %v: %w", entry.Name, err)
		}
	}
	return nil
}

var errReadFailed = errors.New("read failed")

func readFrame(v *vfs.FileSystem, entry vfs.Entry, options vfs.Options, dst []byte) (int, error) {
	type outcome struct {
		n      int
		status int
	}
	done := make(chan outcome, 1)

	v.Read(entry, options, 0, dst, func(n, status int) {
		done <- outcome{n, status}
	})

	out := <-done
	if out.status != 0 {
		return 0, errReadFailed
	}
	return out.n, nil
}
