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

package config

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const EnvPrefix = "GORSE_ARTICLES"

// Config is the configuration for the article recommender.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Server    ServerConfig    `mapstructure:"server"`
	Demo      DemoConfig      `mapstructure:"demo"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// SourceConfig locates the interaction log. Path is either a CSV file or a database
// DSN (mysql://, postgres://, sqlite://, mongodb://).
type SourceConfig struct {
	Path          string        `mapstructure:"path" validate:"required"`
	TablePrefix   string        `mapstructure:"table_prefix"`
	UserColumn    string        `mapstructure:"user_column" validate:"required"`
	ArticleColumn string        `mapstructure:"article_column" validate:"required"`
	TitleColumn   string        `mapstructure:"title_column" validate:"required"`
	Separator     string        `mapstructure:"separator" validate:"len=1"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// connection pool of database sources, zero keeps the driver default
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

type RecommendConfig struct {
	N       int `mapstructure:"n" validate:"gte=0"`
	NumJobs int `mapstructure:"num_jobs" validate:"gte=1"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	APIKey string `mapstructure:"api_key"`
}

// DemoConfig drives the command run without a subcommand.
type DemoConfig struct {
	UserIds []int `mapstructure:"user_ids"`
	N       int   `mapstructure:"n" validate:"gte=0"`
}

type TracingConfig struct {
	EnableTracing     bool    `mapstructure:"enable_tracing"`
	Exporter          string  `mapstructure:"exporter" validate:"oneof=zipkin otlp otlphttp"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Sampler           string  `mapstructure:"sampler" validate:"oneof=always never ratio"`
	Ratio             float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

// NewTracerProvider creates the tracer provider described by the [tracing] section.
// A no-op provider is returned when tracing is disabled.
func (config *TracingConfig) NewTracerProvider(serviceName string) (trace.TracerProvider, error) {
	if !config.EnableTracing {
		return noop.NewTracerProvider(), nil
	}

	var (
		exporter tracesdk.SpanExporter
		err      error
	)
	switch config.Exporter {
	case "zipkin":
		exporter, err = zipkin.New(config.CollectorEndpoint)
	case "otlp":
		client := otlptracegrpc.NewClient(otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.Background(), client)
	case "otlphttp":
		client := otlptracehttp.NewClient(otlptracehttp.WithInsecure(), otlptracehttp.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.Background(), client)
	default:
		return nil, errors.NotSupportedf("exporter %s", config.Exporter)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}

	var sampler tracesdk.Sampler
	switch config.Sampler {
	case "always":
		sampler = tracesdk.AlwaysSample()
	case "never":
		sampler = tracesdk.NeverSample()
	case "ratio":
		sampler = tracesdk.TraceIDRatioBased(config.Ratio)
	default:
		return nil, errors.NotSupportedf("sampler %s", config.Sampler)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.ParentBased(sampler)),
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	), nil
}

func GetDefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:          "data/user-item-interactions.csv",
			UserColumn:    "email",
			ArticleColumn: "article_id",
			TitleColumn:   "title",
			Separator:     ",",
			Timeout:       time.Minute,
		},
		Recommend: RecommendConfig{
			N:       10,
			NumJobs: runtime.NumCPU(),
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8087,
		},
		Demo: DemoConfig{
			UserIds: []int{5, 12000},
			N:       10,
		},
		Tracing: TracingConfig{
			Exporter:          "otlp",
			CollectorEndpoint: "localhost:4317",
			Sampler:           "always",
			Ratio:             1,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [source]
	v.SetDefault("source.path", defaultConfig.Source.Path)
	v.SetDefault("source.table_prefix", defaultConfig.Source.TablePrefix)
	v.SetDefault("source.user_column", defaultConfig.Source.UserColumn)
	v.SetDefault("source.article_column", defaultConfig.Source.ArticleColumn)
	v.SetDefault("source.title_column", defaultConfig.Source.TitleColumn)
	v.SetDefault("source.separator", defaultConfig.Source.Separator)
	v.SetDefault("source.timeout", defaultConfig.Source.Timeout)
	v.SetDefault("source.max_open_conns", defaultConfig.Source.MaxOpenConns)
	v.SetDefault("source.max_idle_conns", defaultConfig.Source.MaxIdleConns)
	v.SetDefault("source.conn_max_lifetime", defaultConfig.Source.ConnMaxLifetime)
	// [recommend]
	v.SetDefault("recommend.n", defaultConfig.Recommend.N)
	v.SetDefault("recommend.num_jobs", defaultConfig.Recommend.NumJobs)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.api_key", defaultConfig.Server.APIKey)
	// [demo]
	v.SetDefault("demo.user_ids", defaultConfig.Demo.UserIds)
	v.SetDefault("demo.n", defaultConfig.Demo.N)
	// [tracing]
	v.SetDefault("tracing.enable_tracing", defaultConfig.Tracing.EnableTracing)
	v.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	v.SetDefault("tracing.collector_endpoint", defaultConfig.Tracing.CollectorEndpoint)
	v.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	v.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

// LoadConfig loads configuration from a TOML or YAML file. Environment variables
// prefixed with GORSE_ARTICLES_ override the file, e.g. GORSE_ARTICLES_SOURCE_PATH.
// An empty path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}
