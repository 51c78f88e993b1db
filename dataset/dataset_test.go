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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataset(t *testing.T) {
	d := NewDataset()
	assert.Equal(t, Interaction{UserId: 1, ArticleId: 1430, Title: "a"},
		d.AddInteraction(RawInteraction{User: "alice@example.com", ArticleId: 1430, Title: "a"}))
	assert.Equal(t, Interaction{UserId: 2, ArticleId: 1314, Title: "b"},
		d.AddInteraction(RawInteraction{User: "bob@example.com", ArticleId: 1314, Title: "b"}))
	assert.Equal(t, Interaction{UserId: 1, ArticleId: 1430, Title: "a"},
		d.AddInteraction(RawInteraction{User: "alice@example.com", ArticleId: 1430, Title: "a"}))
	assert.Equal(t, Interaction{UserId: 3, ArticleId: 1314, Title: "b"},
		d.AddInteraction(RawInteraction{User: "", ArticleId: 1314, Title: "b"}))

	// duplicates are kept
	assert.Equal(t, 4, d.CountInteractions())
	assert.Len(t, d.Interactions(), 4)
	assert.Equal(t, 3, d.CountUsers())
	assert.Equal(t, 2, d.NumInteractions(1))
	assert.Equal(t, 1, d.NumInteractions(2))
	assert.Equal(t, 0, d.NumInteractions(4))

	userId, ok := d.UserId("bob@example.com")
	assert.True(t, ok)
	assert.Equal(t, 2, userId)
	userId, ok = d.UserId("")
	assert.True(t, ok)
	assert.Equal(t, 3, userId)
	_, ok = d.UserId("carol@example.com")
	assert.False(t, ok)

	raw, ok := d.RawUser(1)
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", raw)
	_, ok = d.RawUser(0)
	assert.False(t, ok)
}

func TestArticleTitles(t *testing.T) {
	d := NewDatasetFromInteractions([]Interaction{
		{UserId: 1, ArticleId: 3, Title: "three"},
		{UserId: 1, ArticleId: 1, Title: "one"},
		{UserId: 2, ArticleId: 3, Title: "three"},
		{UserId: 2, ArticleId: 2, Title: "two"},
		{UserId: 3, ArticleId: 4, Title: "two"},
	})
	assert.Equal(t, 3, d.CountUsers())
	// log order, not id order
	assert.Equal(t, []string{"three", "one"}, d.ArticleTitles([]int{1, 3}))
	// titles are deduplicated across ids
	assert.Equal(t, []string{"two"}, d.ArticleTitles([]int{2, 4}))
	assert.Empty(t, d.ArticleTitles(nil))
	assert.Empty(t, d.ArticleTitles([]int{100}))
}
