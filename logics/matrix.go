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
package logics

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/articles/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// UserItemMatrix is a binary presence matrix of users and articles. Rows are observed
// user ids in ascending order and columns are observed article ids in ascending order.
// Repeated interactions collapse to a single presence flag.
type UserItemMatrix struct {
	userIds      []int
	articleIds   []int
	index        map[int]int
	articleIndex map[int]uint
	rows         [][]int
	presence     []*bitset.BitSet
}

func NewUserItemMatrix(ds *dataset.Dataset) *UserItemMatrix {
	interactions := ds.Interactions()
	userIds := lo.Uniq(lo.Map(interactions, func(interaction dataset.Interaction, _ int) int {
		return interaction.UserId
	}))
	sort.Ints(userIds)
	articleIds := lo.Uniq(lo.Map(interactions, func(interaction dataset.Interaction, _ int) int {
		return interaction.ArticleId
	}))
	sort.Ints(articleIds)
	m := &UserItemMatrix{
		userIds:      userIds,
		articleIds:   articleIds,
		index:        make(map[int]int, len(userIds)),
		articleIndex: make(map[int]uint, len(articleIds)),
		rows:         make([][]int, len(userIds)),
		presence:     make([]*bitset.BitSet, len(userIds)),
	}
	for i, userId := range userIds {
		m.index[userId] = i
		m.presence[i] = bitset.New(uint(len(articleIds)))
	}
	for i, articleId := range articleIds {
		m.articleIndex[articleId] = uint(i)
	}
	for _, interaction := range interactions {
		row := m.index[interaction.UserId]
		m.presence[row].Set(m.articleIndex[interaction.ArticleId])
	}
	// rows list articles in column order
	for i := range m.rows {
		m.rows[i] = make([]int, 0, m.presence[i].Count())
		for column, ok := m.presence[i].NextSet(0); ok; column, ok = m.presence[i].NextSet(column + 1) {
			m.rows[i] = append(m.rows[i], articleIds[column])
		}
	}
	return m
}

func (m *UserItemMatrix) UserIds() []int {
	return m.userIds
}

func (m *UserItemMatrix) ArticleIds() []int {
	return m.articleIds
}

func (m *UserItemMatrix) CountUsers() int {
	return len(m.userIds)
}

func (m *UserItemMatrix) Contains(userId int) bool {
	_, ok := m.index[userId]
	return ok
}

// Get returns 1 if the user interacted with the article, otherwise 0.
func (m *UserItemMatrix) Get(userId, articleId int) int {
	row, ok := m.index[userId]
	if !ok {
		return 0
	}
	column, ok := m.articleIndex[articleId]
	if !ok || !m.presence[row].Test(column) {
		return 0
	}
	return 1
}

// UserArticles returns the articles a user interacted with in ascending order.
func (m *UserItemMatrix) UserArticles(userId int) ([]int, error) {
	row, ok := m.index[userId]
	if !ok {
		return nil, errors.NotFoundf("user %d", userId)
	}
	return m.rows[row], nil
}

// similarity counts articles shared by two rows.
func (m *UserItemMatrix) similarity(i, j int) int {
	return int(m.presence[i].IntersectionCardinality(m.presence[j]))
}
