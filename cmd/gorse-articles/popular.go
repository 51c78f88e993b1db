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
	"fmt"
	"strconv"

	"github.com/gorse-io/articles/dataset"
	"github.com/gorse-io/articles/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var popularCommand = &cobra.Command{
	Use:   "popular",
	Short: "List the most popular articles.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, source, err := setup(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer source.Close()
		n := cfg.Recommend.N
		if cmd.Flags().Changed("n") {
			n, _ = cmd.Flags().GetInt("n")
		}
		ds, err := dataset.LoadWithTimeout(cmd.Context(), source, cfg.Source.Timeout)
		if err != nil {
			return errors.Trace(err)
		}
		popularity := logics.NewPopularity(ds)
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("rank", "article id", "title", "count")
		for i, article := range popularity.TopArticles(n) {
			if err = table.Append(strconv.Itoa(i+1), strconv.Itoa(article.ArticleId), article.Title, strconv.Itoa(article.Count)); err != nil {
				return errors.Trace(err)
			}
		}
		if err = table.Render(); err != nil {
			return errors.Trace(err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "There are %d articles in the dataset\n", popularity.CountArticles())
		return errors.Trace(err)
	},
}

func init() {
	popularCommand.Flags().IntP("n", "n", 10, "number of articles")
}
