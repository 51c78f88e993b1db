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
	mapset "github.com/deckarep/golang-set/v2"
)

// RawInteraction is a row of the interaction log before the user identifier is mapped.
type RawInteraction struct {
	User      string
	ArticleId int
	Title     string
}

// Interaction is a canonical row of the interaction log.
type Interaction struct {
	UserId    int
	ArticleId int
	Title     string
}

// Dataset is a snapshot of the interaction log. Repeated views of the same article
// by the same user are kept as separate interactions.
type Dataset struct {
	interactions    []Interaction
	userDict        *Dict
	numInteractions map[int]int
}

func NewDataset() *Dataset {
	return &Dataset{
		interactions:    make([]Interaction, 0),
		userDict:        NewDict(),
		numInteractions: make(map[int]int),
	}
}

// NewDatasetFromInteractions builds a dataset from rows whose users are already mapped.
func NewDatasetFromInteractions(interactions []Interaction) *Dataset {
	d := NewDataset()
	for _, interaction := range interactions {
		d.append(interaction)
	}
	return d
}

// AddInteraction maps the raw user identifier and appends the interaction. User ids are
// assigned in first-seen order starting at 1, so the same identifier gets the same id
// for the whole load.
func (d *Dataset) AddInteraction(raw RawInteraction) Interaction {
	interaction := Interaction{
		UserId:    d.userDict.Id(raw.User) + 1,
		ArticleId: raw.ArticleId,
		Title:     raw.Title,
	}
	d.append(interaction)
	return interaction
}

func (d *Dataset) append(interaction Interaction) {
	d.interactions = append(d.interactions, interaction)
	d.numInteractions[interaction.UserId]++
}

func (d *Dataset) Interactions() []Interaction {
	return d.interactions
}

func (d *Dataset) CountInteractions() int {
	return len(d.interactions)
}

// CountUsers returns the number of distinct users in the log.
func (d *Dataset) CountUsers() int {
	return len(d.numInteractions)
}

// UserId returns the id assigned to a raw user identifier.
func (d *Dataset) UserId(raw string) (int, bool) {
	index, ok := d.userDict.Lookup(raw)
	if !ok {
		return 0, false
	}
	return index + 1, true
}

// RawUser returns the raw identifier behind a user id.
func (d *Dataset) RawUser(userId int) (string, bool) {
	return d.userDict.String(userId - 1)
}

// NumInteractions returns the number of rows of a user, duplicates included.
func (d *Dataset) NumInteractions(userId int) int {
	return d.numInteractions[userId]
}

// ArticleTitles returns the distinct titles of the rows whose article is in articleIds,
// in the order they first appear in the log.
func (d *Dataset) ArticleTitles(articleIds []int) []string {
	ids := mapset.NewThreadUnsafeSet(articleIds...)
	seen := mapset.NewThreadUnsafeSet[string]()
	titles := make([]string, 0, len(articleIds))
	for _, interaction := range d.interactions {
		if ids.Contains(interaction.ArticleId) && !seen.Contains(interaction.Title) {
			seen.Add(interaction.Title)
			titles = append(titles, interaction.Title)
		}
	}
	return titles
}
