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
	"context"
	"runtime"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/articles/base/log"
	"github.com/gorse-io/articles/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Recommendation is the result of a recommendation request. Titles are the distinct
// titles of the recommended articles in log order and do not align with ArticleIds.
type Recommendation struct {
	ArticleIds []int
	Titles     []string
	ColdStart  bool
}

type RecommenderOption func(*Recommender)

func WithLogger(logger *zap.Logger) RecommenderOption {
	return func(r *Recommender) {
		r.logger = logger
	}
}

func WithNumJobs(numJobs int) RecommenderOption {
	return func(r *Recommender) {
		r.numJobs = numJobs
	}
}

// Recommender recommends articles from one snapshot of the interaction log. Known users
// get articles read by their neighbors, unknown users get the most popular articles.
type Recommender struct {
	dataset    *dataset.Dataset
	matrix     *UserItemMatrix
	popularity *Popularity
	ranker     *NeighborRanker
	logger     *zap.Logger
	numJobs    int
}

func NewRecommender(ds *dataset.Dataset, opts ...RecommenderOption) *Recommender {
	r := &Recommender{
		dataset: ds,
		logger:  log.Logger(),
		numJobs: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.matrix = NewUserItemMatrix(ds)
	r.popularity = NewPopularity(ds)
	r.ranker = NewNeighborRanker(ds, r.matrix, r.numJobs)
	return r
}

func (r *Recommender) Matrix() *UserItemMatrix {
	return r.matrix
}

func (r *Recommender) Popularity() *Popularity {
	return r.popularity
}

func (r *Recommender) Ranker() *NeighborRanker {
	return r.ranker
}

// CountUsers returns the number of distinct users in the snapshot.
func (r *Recommender) CountUsers() int {
	return r.dataset.CountUsers()
}

// ArticleTitles returns the distinct titles of articles in log order.
func (r *Recommender) ArticleTitles(articleIds []int) []string {
	return r.dataset.ArticleTitles(articleIds)
}

// Recommend returns up to m articles the user has not interacted with. Candidates are
// collected from neighbors, most similar first, until at least m are found. The pooled
// candidates are ordered by ascending article id and truncated to m.
func (r *Recommender) Recommend(ctx context.Context, userId, m int) (*Recommendation, error) {
	if m < 0 {
		return nil, errors.NotValidf("number of recommendations %d", m)
	}
	start := time.Now()
	defer func() {
		RecommendSeconds.Observe(time.Since(start).Seconds())
	}()

	seen, err := r.matrix.UserArticles(userId)
	if errors.Is(err, errors.NotFound) {
		r.logger.Info("user has no interactions, recommend popular articles",
			zap.Int("user_id", userId), zap.Int("n", m))
		ColdStartTotal.Inc()
		return &Recommendation{
			ArticleIds: r.popularity.TopArticleIds(m),
			Titles:     r.popularity.TopArticleTitles(m),
			ColdStart:  true,
		}, nil
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	if m == 0 {
		return &Recommendation{ArticleIds: []int{}, Titles: []string{}}, nil
	}

	neighbors, err := r.ranker.NeighborsOf(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	seenSet := mapset.NewThreadUnsafeSet(seen...)
	recs := mapset.NewThreadUnsafeSet[int]()
	for _, neighbor := range neighbors {
		articles, err := r.matrix.UserArticles(neighbor.NeighborId)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for _, articleId := range articles {
			if !seenSet.Contains(articleId) {
				recs.Add(articleId)
			}
		}
		if recs.Cardinality() >= m {
			break
		}
	}
	articleIds := recs.ToSlice()
	sort.Ints(articleIds)
	if len(articleIds) > m {
		articleIds = articleIds[:m]
	}
	if len(articleIds) < m {
		r.logger.Warn("not enough articles from neighbors",
			zap.Int("user_id", userId),
			zap.Int("n", m),
			zap.Int("n_found", len(articleIds)),
			zap.Int("n_neighbors", len(neighbors)))
	}
	return &Recommendation{
		ArticleIds: articleIds,
		Titles:     r.dataset.ArticleTitles(articleIds),
	}, nil
}

// MakeRecommendations loads a fresh snapshot from source and recommends up to m
// articles to the user.
func MakeRecommendations(ctx context.Context, source dataset.Source, userId, m int, opts ...RecommenderOption) ([]int, []string, error) {
	start := time.Now()
	ds, err := source.Load(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	LoadDatasetSeconds.Observe(time.Since(start).Seconds())
	recommendation, err := NewRecommender(ds, opts...).Recommend(ctx, userId, m)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return recommendation.ArticleIds, recommendation.Titles, nil
}
