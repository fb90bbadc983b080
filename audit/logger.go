/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package audit implements the persisted compliance log: one file per
// category per day (trade/system/monitor/error), plus a merged "all"
// stream, rotated daily and pruned past a retention window. The rotation/
// retention schedule runs on github.com/robfig/cron/v3, the same
// scheduler idiom the teacher uses for its own background jobs.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ByteBard/prime-ctp-go/config"
)

type Category string

const (
	CategoryTrade   Category = "trade"
	CategorySystem  Category = "system"
	CategoryMonitor Category = "monitor"
	CategoryError   Category = "error"
)

var categories = []Category{CategoryTrade, CategorySystem, CategoryMonitor, CategoryError}

// Logger owns one zerolog.Logger per category, each writing to its own
// daily-rotated file, plus a merged "all" logger every category also
// writes through.
type Logger struct {
	cfg config.LogConfig

	mu      sync.Mutex
	files   map[Category]*os.File
	allFile *os.File
	loggers map[Category]zerolog.Logger
	day     string
	cronSvc *cron.Cron
}

func init() {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
}

// NewLogger opens today's files for every category and the merged stream.
func NewLogger(cfg config.LogConfig) (*Logger, error) {
	l := &Logger{
		cfg:     cfg,
		files:   make(map[Category]*os.File),
		loggers: make(map[Category]zerolog.Logger),
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create log dir: %w", err)
	}
	if err := l.openToday(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) baseFilename(c Category) string {
	switch c {
	case CategoryTrade:
		return l.cfg.TradeFile
	case CategorySystem:
		return l.cfg.SystemFile
	case CategoryMonitor:
		return l.cfg.MonitorFile
	case CategoryError:
		return l.cfg.ErrorFile
	default:
		return string(c) + ".log"
	}
}

func (l *Logger) datedPath(base, day string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(l.cfg.LogDir, fmt.Sprintf("%s-%s%s", stem, day, ext))
}

func (l *Logger) openToday() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := time.Now().Format("2006-01-02")
	l.closeLocked()

	allPath := l.datedPath(l.cfg.AllFile, day)
	allFile, err := os.OpenFile(allPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open all log: %w", err)
	}
	l.allFile = allFile

	for _, c := range categories {
		path := l.datedPath(l.baseFilename(c), day)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("audit: open %s log: %w", c, err)
		}
		l.files[c] = f
		writer := zerolog.MultiLevelWriter(f, allFile)
		l.loggers[c] = zerolog.New(writer).With().Timestamp().Str("category", string(c)).Logger()
	}
	l.day = day
	return nil
}

func (l *Logger) closeLocked() {
	for _, f := range l.files {
		_ = f.Close()
	}
	if l.allFile != nil {
		_ = l.allFile.Close()
	}
}

// Logger returns the per-category logger; callers chain .Info()/.Warn()/
// .Error().Msg(...) on it same as any zerolog.Logger.
func (l *Logger) Logger(c Category) zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loggers[c]
}

func (l *Logger) Trade() zerolog.Logger   { return l.Logger(CategoryTrade) }
func (l *Logger) System() zerolog.Logger  { return l.Logger(CategorySystem) }
func (l *Logger) Monitor() zerolog.Logger { return l.Logger(CategoryMonitor) }
func (l *Logger) Error() zerolog.Logger   { return l.Logger(CategoryError) }

// StartRotation schedules the daily rotate-and-prune job on the configured
// cron expression (default midnight) and returns the cron handle so the
// caller can Stop() it on shutdown.
func (l *Logger) StartRotation() *cron.Cron {
	c := cron.New()
	schedule := l.cfg.RotationCron
	if schedule == "" {
		schedule = "0 0 * * *"
	}
	_, _ = c.AddFunc(schedule, func() {
		if err := l.openToday(); err != nil {
			l.Logger(CategorySystem).Error().Err(err).Msg("audit log rotation failed")
			return
		}
		l.prune()
	})
	c.Start()
	l.mu.Lock()
	l.cronSvc = c
	l.mu.Unlock()
	return c
}

func (l *Logger) Stop() {
	l.mu.Lock()
	c := l.cronSvc
	l.mu.Unlock()
	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
}

// prune deletes any rotated file in the log directory older than
// retention_days.
func (l *Logger) prune() {
	retention := l.cfg.RetentionDays
	if retention <= 0 {
		retention = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retention)

	entries, err := os.ReadDir(l.cfg.LogDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(l.cfg.LogDir, entry.Name()))
		}
	}
}

// ListRotatedFiles returns the on-disk log file names sorted in descending
// name order, so within one category the most recent day comes first.
func (l *Logger) ListRotatedFiles() []string {
	entries, err := os.ReadDir(l.cfg.LogDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}
