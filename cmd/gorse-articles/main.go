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
package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gorse-io/articles/base/log"
	"github.com/gorse-io/articles/cmd/version"
	"github.com/gorse-io/articles/config"
	"github.com/gorse-io/articles/dataset"
	"github.com/gorse-io/articles/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "gorse-articles",
	Short: "Recommend articles from user-article interactions.",
	Long: "Recommend articles from user-article interactions. Without a subcommand, " +
		"recommendations for the demo users are printed followed by the number of users.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Show version
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			_, err := fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
			return err
		}
		cfg, source, err := setup(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer source.Close()
		return runDemo(cmd.Context(), cmd.OutOrStdout(), cfg, source)
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().String("source", "", "interaction log: CSV file or database DSN (overrides config)")
	rootCommand.Flags().BoolP("version", "v", false, "gorse-articles version")
	rootCommand.AddCommand(recommendCommand, popularCommand, importCommand, serveCommand)
}

func main() {
	err := rootCommand.Execute()
	shutdownTracing()
	if err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

// setup configures the logger, loads the config and opens the interaction source.
func setup(cmd *cobra.Command) (*config.Config, dataset.Source, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	if cmd.Flags().Changed("source") {
		cfg.Source.Path, _ = cmd.Flags().GetString("source")
	}
	log.Logger().Debug("load config",
		zap.String("config", configPath),
		zap.String("source", log.RedactDBURL(cfg.Source.Path)))
	if err = setupTracing(cfg); err != nil {
		return nil, nil, errors.Trace(err)
	}
	source, err := dataset.Open(cfg.Source.Path, dataset.ConfigOptions(cfg.Source)...)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return cfg, source, nil
}

// tracerProvider is flushed before exit when tracing is enabled.
var tracerProvider *tracesdk.TracerProvider

// setupTracing installs the tracer provider of the [tracing] section. Spans of the REST
// filter and the database drivers go to the global provider.
func setupTracing(cfg *config.Config) error {
	tp, err := cfg.Tracing.NewTracerProvider("gorse-articles")
	if err != nil {
		return errors.Trace(err)
	}
	otel.SetTracerProvider(tp)
	otel.SetErrorHandler(log.GetErrorHandler())
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	if sdk, ok := tp.(*tracesdk.TracerProvider); ok {
		tracerProvider = sdk
	}
	return nil
}

func shutdownTracing() {
	if tracerProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Logger().Error("failed to shutdown tracer provider", zap.Error(err))
	}
	tracerProvider = nil
}

func runDemo(ctx context.Context, w io.Writer, cfg *config.Config, source dataset.Source) error {
	table := tablewriter.NewWriter(w)
	table.Header("user id", "article ids", "titles")
	for _, userId := range cfg.Demo.UserIds {
		ids, titles, err := makeRecommendations(ctx, cfg, source, userId, cfg.Demo.N)
		if err != nil {
			return errors.Trace(err)
		}
		if err = table.Append(strconv.Itoa(userId), joinInts(ids), strings.Join(titles, "\n")); err != nil {
			return errors.Trace(err)
		}
	}
	if err := table.Render(); err != nil {
		return errors.Trace(err)
	}
	ds, err := dataset.LoadWithTimeout(ctx, source, cfg.Source.Timeout)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = fmt.Fprintf(w, "There are %d users in the dataset\n", ds.CountUsers())
	return err
}

func makeRecommendations(ctx context.Context, cfg *config.Config, source dataset.Source, userId, n int) ([]int, []string, error) {
	if cfg.Source.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Source.Timeout)
		defer cancel()
	}
	return logics.MakeRecommendations(ctx, source, userId, n, logics.WithNumJobs(cfg.Recommend.NumJobs))
}

func joinInts(values []int) string {
	return strings.Join(lo.Map(values, func(value int, _ int) string {
		return strconv.Itoa(value)
	}), "\n")
}
