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
	"strconv"

	"github.com/gorse-io/articles/base/log"
	"github.com/gorse-io/articles/config"
	"github.com/gorse-io/articles/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCommand = &cobra.Command{
	Use:   "import",
	Short: "Copy interactions from the source into a database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, source, err := setup(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer source.Close()
		target, _ := cmd.Flags().GetString("target")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		return importInteractions(cmd.Context(), cfg, source, target, batchSize)
	},
}

func init() {
	importCommand.Flags().String("target", "", "database DSN to import into")
	importCommand.Flags().Int("batch-size", 1000, "number of interactions per insert")
	_ = importCommand.MarkFlagRequired("target")
}

func importInteractions(ctx context.Context, cfg *config.Config, source dataset.Source, target string, batchSize int) error {
	if batchSize <= 0 {
		return errors.NotValidf("batch size %d", batchSize)
	}
	ds, err := dataset.LoadWithTimeout(ctx, source, cfg.Source.Timeout)
	if err != nil {
		return errors.Trace(err)
	}
	writer, err := dataset.OpenWriter(target, dataset.WithTablePrefix(cfg.Source.TablePrefix))
	if err != nil {
		return errors.Trace(err)
	}
	defer writer.Close()
	if err = writer.Init(ctx); err != nil {
		return errors.Trace(err)
	}
	raws := lo.Map(ds.Interactions(), func(interaction dataset.Interaction, _ int) dataset.RawInteraction {
		user, ok := ds.RawUser(interaction.UserId)
		if !ok {
			user = strconv.Itoa(interaction.UserId)
		}
		return dataset.RawInteraction{User: user, ArticleId: interaction.ArticleId, Title: interaction.Title}
	})
	bar := progressbar.Default(int64(len(raws)), "Importing interactions")
	for _, chunk := range lo.Chunk(raws, batchSize) {
		if err = writer.BatchInsert(ctx, chunk); err != nil {
			return errors.Trace(err)
		}
		_ = bar.Add(len(chunk))
	}
	_ = bar.Finish()
	log.Logger().Info("import interactions",
		zap.String("target", log.RedactDBURL(target)),
		zap.Int("n_interactions", len(raws)),
		zap.Int("n_users", ds.CountUsers()))
	return nil
}
