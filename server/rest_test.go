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
package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorse-io/articles/config"
	"github.com/gorse-io/articles/dataset"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

const apiKey = "test_api_key"

const interactions = "article_id,title,email\n" +
	"1,title 1,a\n" +
	"2,title 2,a\n" +
	"1,title 1,b\n" +
	"2,title 2,b\n" +
	"9,title 9,b\n" +
	"5,title 5,b\n" +
	"1,title 1,c\n" +
	"7,title 7,c\n" +
	"3,title 3,c\n" +
	"8,title 8,d\n"

type ServerTestSuite struct {
	suite.Suite
	*RestServer
}

func (suite *ServerTestSuite) SetupTest() {
	path := filepath.Join(suite.T().TempDir(), "user-item-interactions.csv")
	suite.NoError(os.WriteFile(path, []byte(interactions), 0644))
	cfg := config.GetDefaultConfig()
	cfg.Source.Path = path
	cfg.Recommend.NumJobs = 2
	cfg.Server.APIKey = apiKey
	source, err := dataset.Open(path, dataset.ConfigOptions(cfg.Source)...)
	suite.NoError(err)
	suite.RestServer = NewRestServer(cfg, source)
}

func (suite *ServerTestSuite) TestRecommend() {
	t := suite.T()
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/1").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "3"}).
		Expect(t).
		Status(http.StatusOK).
		Body(`{"article_ids":[3,5,7],"titles":["title 5","title 7","title 3"],"cold_start":false}`).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/1").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(`{"article_ids":[3,5,7,8,9],"titles":["title 9","title 5","title 7","title 3","title 8"],"cold_start":false}`).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/1").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "0"}).
		Expect(t).
		Status(http.StatusOK).
		Body(`{"article_ids":[],"titles":[],"cold_start":false}`).
		End()
}

func (suite *ServerTestSuite) TestRecommendColdStart() {
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/12000").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "2"}).
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(`{"article_ids":[1,2],"titles":["title 1","title 2"],"cold_start":true}`).
		End()
}

func (suite *ServerTestSuite) TestRecommendBadRequest() {
	t := suite.T()
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/1").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "-1"}).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/1").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "ten"}).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/alice").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestPopular() {
	t := suite.T()
	apitest.New().
		Handler(suite.Container).
		Get("/api/popular").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "2"}).
		Expect(t).
		Status(http.StatusOK).
		Body(`[{"article_id":1,"title":"title 1","count":3},{"article_id":2,"title":"title 2","count":2}]`).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/api/popular").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "-1"}).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestNeighbors() {
	t := suite.T()
	apitest.New().
		Handler(suite.Container).
		Get("/api/neighbors/1").
		Header("X-API-Key", apiKey).
		QueryParams(map[string]string{"n": "2"}).
		Expect(t).
		Status(http.StatusOK).
		Body(`[{"user_id":2,"similarity":2,"num_interactions":4},{"user_id":3,"similarity":1,"num_interactions":3}]`).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/api/neighbors/12000").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestUsers() {
	apitest.New().
		Handler(suite.Container).
		Get("/api/users").
		Header("X-API-Key", apiKey).
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(`{"count":4}`).
		End()
}

func (suite *ServerTestSuite) TestAuth() {
	t := suite.T()
	apitest.New().
		Handler(suite.Container).
		Get("/api/users").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/api/popular").
		Header("X-API-Key", "wrong").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	suite.Config.Server.APIKey = ""
	apitest.New().
		Handler(suite.Container).
		Get("/api/users").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func (suite *ServerTestSuite) TestFreshSnapshot() {
	t := suite.T()
	apitest.New().
		Handler(suite.Container).
		Get("/api/users").
		Header("X-API-Key", apiKey).
		Expect(t).
		Body(`{"count":4}`).
		End()
	// appended interactions are visible to the next request
	file, err := os.OpenFile(suite.Config.Source.Path, os.O_APPEND|os.O_WRONLY, 0644)
	suite.NoError(err)
	_, err = file.WriteString("1,title 1,e\n")
	suite.NoError(err)
	suite.NoError(file.Close())
	apitest.New().
		Handler(suite.Container).
		Get("/api/users").
		Header("X-API-Key", apiKey).
		Expect(t).
		Body(`{"count":5}`).
		End()
}

func (suite *ServerTestSuite) TestLoadError() {
	suite.Source = dataset.NewCSVSource(filepath.Join(suite.T().TempDir(), "missing.csv"))
	apitest.New().
		Handler(suite.Container).
		Get("/api/recommend/1").
		Header("X-API-Key", apiKey).
		Expect(suite.T()).
		Status(http.StatusInternalServerError).
		End()
}

func (suite *ServerTestSuite) TestDocsAndMetrics() {
	t := suite.T()
	apitest.New().
		Handler(suite.Container).
		Get(apiDocsPath).
		Expect(t).
		Status(http.StatusOK).
		End()
	apitest.New().
		Handler(suite.Container).
		Get("/metrics").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestStartHttpServer(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Server.Port = 0
	s := NewRestServer(cfg, dataset.NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")))
	done := make(chan error)
	go func() {
		done <- s.StartHttpServer()
	}()
	assert.Equal(t, "127.0.0.1:0", s.HttpServer.Addr)
	assert.NoError(t, s.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server is not shut down")
	}
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder)))
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	path := filepath.Join(t.TempDir(), "user-item-interactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(interactions), 0644))
	cfg := config.GetDefaultConfig()
	cfg.Source.Path = path
	s := NewRestServer(cfg, dataset.NewCSVSource(path))
	apitest.New().
		Handler(s.Container).
		Get("/api/recommend/1").
		Expect(t).
		Status(http.StatusOK).
		End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "/api/recommend/{user-id}", spans[0].Name())
}
