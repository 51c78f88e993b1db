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
	"strconv"
	"strings"

	"github.com/gorse-io/articles/dataset"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend articles to a user.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, source, err := setup(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer source.Close()
		userId, _ := cmd.Flags().GetInt("user")
		if cmd.Flags().Changed("email") {
			email, _ := cmd.Flags().GetString("email")
			ds, err := dataset.LoadWithTimeout(cmd.Context(), source, cfg.Source.Timeout)
			if err != nil {
				return errors.Trace(err)
			}
			var ok bool
			if userId, ok = ds.UserId(email); !ok {
				// unknown identifiers get popular articles
				userId = ds.CountUsers() + 1
			}
		} else if !cmd.Flags().Changed("user") {
			return errors.NotValidf("either --user or --email is required")
		}
		n := cfg.Recommend.N
		if cmd.Flags().Changed("n") {
			n, _ = cmd.Flags().GetInt("n")
		}
		ids, titles, err := makeRecommendations(cmd.Context(), cfg, source, userId, n)
		if err != nil {
			return errors.Trace(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("user id", "article ids", "titles")
		if err = table.Append(strconv.Itoa(userId), joinInts(ids), strings.Join(titles, "\n")); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(table.Render())
	},
}

func init() {
	recommendCommand.Flags().Int("user", 0, "user id")
	recommendCommand.Flags().String("email", "", "raw user identifier in the interaction log")
	recommendCommand.Flags().IntP("n", "n", 10, "number of recommended articles")
}
