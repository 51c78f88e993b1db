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
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

var rawInteractions = []RawInteraction{
	{User: "alice@example.com", ArticleId: 1430, Title: "using pixiedust for fast, flexible, and easier data analysis and experimentation"},
	{User: "bob@example.com", ArticleId: 1314, Title: "healthcare python streaming application demo"},
	{User: "alice@example.com", ArticleId: 1314, Title: "healthcare python streaming application demo"},
	{User: "alice@example.com", ArticleId: 1430, Title: "using pixiedust for fast, flexible, and easier data analysis and experimentation"},
	{User: "", ArticleId: 1429, Title: "use deep learning for image classification"},
}

type baseTestSuite struct {
	suite.Suite
	Writer
}

func (suite *baseTestSuite) TestLoadEmpty() {
	ctx := context.Background()
	d, err := suite.Load(ctx)
	suite.NoError(err)
	suite.Zero(d.CountInteractions())
	suite.Zero(d.CountUsers())
}

func (suite *baseTestSuite) TestInsertAndLoad() {
	ctx := context.Background()
	suite.NoError(suite.BatchInsert(ctx, nil))
	suite.NoError(suite.BatchInsert(ctx, rawInteractions[:3]))
	suite.NoError(suite.BatchInsert(ctx, rawInteractions[3:]))

	d, err := suite.Load(ctx)
	suite.NoError(err)
	suite.Equal([]Interaction{
		{UserId: 1, ArticleId: 1430, Title: rawInteractions[0].Title},
		{UserId: 2, ArticleId: 1314, Title: rawInteractions[1].Title},
		{UserId: 1, ArticleId: 1314, Title: rawInteractions[2].Title},
		{UserId: 1, ArticleId: 1430, Title: rawInteractions[3].Title},
		{UserId: 3, ArticleId: 1429, Title: rawInteractions[4].Title},
	}, d.Interactions())
	suite.Equal(3, d.NumInteractions(1))
	suite.Equal(3, d.CountUsers())
}

func (suite *baseTestSuite) TestInsertLargeBatch() {
	ctx := context.Background()
	batch := make([]RawInteraction, batchSize+10)
	for i := range batch {
		batch[i] = RawInteraction{User: fmt.Sprintf("user%d", i%7), ArticleId: i, Title: fmt.Sprintf("title %d", i)}
	}
	suite.NoError(suite.BatchInsert(ctx, batch))
	d, err := suite.Load(ctx)
	suite.NoError(err)
	suite.Equal(len(batch), d.CountInteractions())
	suite.Equal(7, d.CountUsers())
	suite.Equal(batchSize+9, d.Interactions()[batchSize+9].ArticleId)
}

type SQLiteTestSuite struct {
	baseTestSuite
}

func (suite *SQLiteTestSuite) SetupTest() {
	var err error
	suite.Writer, err = OpenWriter(fmt.Sprintf("sqlite://%s/data.db", suite.T().TempDir()), WithTablePrefix("gorse_"))
	suite.NoError(err)
	suite.NoError(suite.Init(context.Background()))
}

func (suite *SQLiteTestSuite) TearDownTest() {
	suite.NoError(suite.Close())
}

func TestSQLite(t *testing.T) {
	suite.Run(t, new(SQLiteTestSuite))
}

func TestSQLiteMissingTable(t *testing.T) {
	source, err := Open(fmt.Sprintf("sqlite://%s/data.db", t.TempDir()))
	assert.NoError(t, err)
	defer source.Close()
	_, err = source.Load(context.Background())
	assert.True(t, IsLoadError(err))
}

func TestSQLUnreachable(t *testing.T) {
	// the server version is queried while opening
	_, err := Open("mysql://root@tcp(127.0.0.1:1)/articles")
	assert.Error(t, err)
}

func TestSQLiteTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	source, err := OpenWriter(fmt.Sprintf("sqlite://%s/data.db", t.TempDir()))
	require.NoError(t, err)
	defer source.Close()
	ctx, span := tp.Tracer("test").Start(context.Background(), "load")
	require.NoError(t, source.Init(ctx))
	require.NoError(t, source.BatchInsert(ctx, rawInteractions))
	_, err = source.Load(ctx)
	require.NoError(t, err)
	span.End()

	children := lo.Filter(recorder.Ended(), func(s tracesdk.ReadOnlySpan, _ int) bool {
		return s.Parent().SpanID() == span.SpanContext().SpanID()
	})
	assert.NotEmpty(t, children)
	for _, child := range children {
		assert.True(t, strings.HasPrefix(child.Name(), "sql."), child.Name())
	}
}
