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
	"sort"

	"github.com/gorse-io/articles/common/parallel"
	"github.com/gorse-io/articles/dataset"
	"github.com/juju/errors"
)

type Neighbor struct {
	NeighborId      int
	Similarity      int
	NumInteractions int
}

// NeighborRanker ranks users by the number of articles they share with a target user.
type NeighborRanker struct {
	dataset *dataset.Dataset
	matrix  *UserItemMatrix
	numJobs int
}

func NewNeighborRanker(ds *dataset.Dataset, matrix *UserItemMatrix, numJobs int) *NeighborRanker {
	return &NeighborRanker{
		dataset: ds,
		matrix:  matrix,
		numJobs: max(numJobs, 1),
	}
}

// Similarity returns the number of articles both users interacted with.
func (r *NeighborRanker) Similarity(u, v int) (int, error) {
	i, ok := r.matrix.index[u]
	if !ok {
		return 0, errors.NotFoundf("user %d", u)
	}
	j, ok := r.matrix.index[v]
	if !ok {
		return 0, errors.NotFoundf("user %d", v)
	}
	return r.matrix.similarity(i, j), nil
}

// NumInteractions returns the number of interaction records of a user, duplicates included.
func (r *NeighborRanker) NumInteractions(userId int) int {
	return r.dataset.NumInteractions(userId)
}

// NeighborsOf returns every other user ordered by descending similarity, then by
// descending number of interactions, then by ascending user id.
func (r *NeighborRanker) NeighborsOf(ctx context.Context, userId int) ([]Neighbor, error) {
	target, ok := r.matrix.index[userId]
	if !ok {
		return nil, errors.NotFoundf("user %d", userId)
	}
	userIds := r.matrix.UserIds()
	similarities := make([]int, len(userIds))
	if err := parallel.For(ctx, len(userIds), r.numJobs, func(row int) {
		similarities[row] = r.matrix.similarity(target, row)
	}); err != nil {
		return nil, errors.Trace(err)
	}
	neighbors := make([]Neighbor, 0, len(userIds))
	for row, neighborId := range userIds {
		if neighborId == userId {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			NeighborId:      neighborId,
			Similarity:      similarities[row],
			NumInteractions: r.NumInteractions(neighborId),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].NumInteractions > neighbors[j].NumInteractions
	})
	return neighbors, nil
}
