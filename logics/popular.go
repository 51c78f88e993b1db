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

	"github.com/gorse-io/articles/dataset"
	"github.com/samber/lo"
)

type PopularArticle struct {
	ArticleId int
	Title     string
	Count     int
}

// Popularity ranks articles by the number of interactions, once by article id and once
// by title. Ties keep the order in which articles first appear in the log.
type Popularity struct {
	articles []PopularArticle
	titles   []string
}

func NewPopularity(ds *dataset.Dataset) *Popularity {
	interactions := ds.Interactions()
	articleIds := lo.Map(interactions, func(interaction dataset.Interaction, _ int) int {
		return interaction.ArticleId
	})
	titles := lo.Map(interactions, func(interaction dataset.Interaction, _ int) string {
		return interaction.Title
	})
	firstTitles := make(map[int]string)
	for _, interaction := range interactions {
		if _, exist := firstTitles[interaction.ArticleId]; !exist {
			firstTitles[interaction.ArticleId] = interaction.Title
		}
	}
	idCounts := lo.CountValues(articleIds)
	p := &Popularity{
		articles: lo.Map(rankByCount(articleIds), func(articleId int, _ int) PopularArticle {
			return PopularArticle{ArticleId: articleId, Title: firstTitles[articleId], Count: idCounts[articleId]}
		}),
		titles: rankByCount(titles),
	}
	return p
}

func rankByCount[T comparable](values []T) []T {
	counts := lo.CountValues(values)
	ranked := lo.Uniq(values)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	return ranked
}

// TopArticles returns the n most popular articles with their counts.
func (p *Popularity) TopArticles(n int) []PopularArticle {
	n = lo.Clamp(n, 0, len(p.articles))
	return append([]PopularArticle{}, p.articles[:n]...)
}

func (p *Popularity) TopArticleIds(n int) []int {
	return lo.Map(p.TopArticles(n), func(article PopularArticle, _ int) int {
		return article.ArticleId
	})
}

func (p *Popularity) TopArticleTitles(n int) []string {
	n = lo.Clamp(n, 0, len(p.titles))
	return append([]string{}, p.titles[:n]...)
}

// CountArticles returns the number of distinct article ids.
func (p *Popularity) CountArticles() int {
	return len(p.articles)
}
