// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorse-io/articles/base/log"
	"github.com/gorse-io/articles/config"
	"github.com/gorse-io/articles/storage"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const FilePrefix = storage.FilePrefix

// LoadError is returned when the interaction log is missing, unreadable or lacks a
// required column. No partial dataset accompanies it.
type LoadError struct {
	Source string
	Err    error
}

func newLoadError(source string, err error) *LoadError {
	return &LoadError{Source: log.RedactDBURL(source), Err: err}
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load interactions from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr)
}

// Source supplies a fresh snapshot of the interaction log on every Load.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
	Close() error
}

// Writer stores raw interactions. Implemented by the database sources.
type Writer interface {
	Source
	Init(ctx context.Context) error
	BatchInsert(ctx context.Context, interactions []RawInteraction) error
}

type Options struct {
	UserColumn    string
	ArticleColumn string
	TitleColumn   string
	Separator     rune
	TablePrefix   string
	Pool          storage.Options
}

type Option func(*Options)

func WithColumns(user, article, title string) Option {
	return func(o *Options) {
		o.UserColumn = user
		o.ArticleColumn = article
		o.TitleColumn = title
	}
}

func WithSeparator(sep rune) Option {
	return func(o *Options) {
		o.Separator = sep
	}
}

func WithTablePrefix(prefix string) Option {
	return func(o *Options) {
		o.TablePrefix = prefix
	}
}

func WithPool(opts ...storage.Option) Option {
	return func(o *Options) {
		o.Pool = storage.NewOptions(opts...)
	}
}

func NewOptions(opts ...Option) Options {
	defaultSource := config.GetDefaultConfig().Source
	opt := Options{
		UserColumn:    defaultSource.UserColumn,
		ArticleColumn: defaultSource.ArticleColumn,
		TitleColumn:   defaultSource.TitleColumn,
		Separator:     ',',
	}
	for _, o := range opts {
		o(&opt)
	}
	return opt
}

// ConfigOptions translates the [source] section into source options.
func ConfigOptions(cfg config.SourceConfig) []Option {
	opts := []Option{
		WithColumns(cfg.UserColumn, cfg.ArticleColumn, cfg.TitleColumn),
		WithTablePrefix(cfg.TablePrefix),
		WithPool(
			storage.WithMaxOpenConns(cfg.MaxOpenConns),
			storage.WithMaxIdleConns(cfg.MaxIdleConns),
			storage.WithConnMaxLifetime(cfg.ConnMaxLifetime),
		),
	}
	if sep, _ := utf8.DecodeRuneInString(cfg.Separator); sep != utf8.RuneError {
		opts = append(opts, WithSeparator(sep))
	}
	return opts
}

// Open a source of interactions. Database DSNs (mysql://, postgres://, postgresql://,
// sqlite://, mongodb://, mongodb+srv://) open a database source, anything else is read
// as a CSV file.
func Open(path string, opts ...Option) (Source, error) {
	if storage.IsSQL(path) || storage.IsMongo(path) {
		return OpenWriter(path, opts...)
	}
	return NewCSVSource(path, opts...), nil
}

// OpenWriter opens a database source that can also store interactions.
func OpenWriter(path string, opts ...Option) (Writer, error) {
	if storage.IsSQL(path) {
		return openSQLSource(path, NewOptions(opts...))
	} else if storage.IsMongo(path) {
		return openMongoSource(path, NewOptions(opts...))
	} else if strings.HasPrefix(path, FilePrefix) || !strings.Contains(path, "://") {
		return nil, errors.NotSupportedf("writing to CSV file %s", path)
	}
	return nil, errors.Errorf("Unknown database: %s", log.RedactDBURL(path))
}

// LoadWithTimeout loads a snapshot within timeout. A zero timeout waits indefinitely.
func LoadWithTimeout(ctx context.Context, source Source, timeout time.Duration) (*Dataset, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	d, err := source.Load(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("load interactions",
		zap.Int("n_interactions", d.CountInteractions()),
		zap.Int("n_users", d.CountUsers()),
		zap.Duration("elapsed", time.Since(start)))
	return d, nil
}
