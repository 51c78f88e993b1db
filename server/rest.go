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
	"fmt"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/articles/base/log"
	"github.com/gorse-io/articles/config"
	"github.com/gorse-io/articles/dataset"
	"github.com/gorse-io/articles/logics"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

const apiDocsPath = "/apidocs.json"

// RestServer implements a REST-ful API server. Every request builds its answer from a
// fresh snapshot of the interaction log.
type RestServer struct {
	Config     *config.Config
	Source     dataset.Source
	WebService *restful.WebService
	Container  *restful.Container
	HttpServer *http.Server
}

func NewRestServer(cfg *config.Config, source dataset.Source) *RestServer {
	s := &RestServer{
		Config:     cfg,
		Source:     source,
		WebService: new(restful.WebService),
		Container:  restful.NewContainer(),
	}
	s.CreateWebService()
	s.Container.Add(s.WebService)
	// register OpenAPI docs
	specConfig := restfulspec.Config{
		WebServices: s.Container.RegisteredWebServices(),
		APIPath:     apiDocsPath,
	}
	s.Container.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	s.Container.Handle("/metrics", promhttp.Handler())
	s.HttpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: s.Container,
	}
	return s
}

// StartHttpServer starts the REST-ful API server and blocks until it is shut down.
func (s *RestServer) StartHttpServer() error {
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s", s.HttpServer.Addr)),
		zap.String("source", log.RedactDBURL(s.Config.Source.Path)))
	if err := s.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *RestServer) Shutdown(ctx context.Context) error {
	return errors.Trace(s.HttpServer.Shutdown(ctx))
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.Header().Set("X-Request-ID", requestId)
	start := time.Now()
	chain.ProcessFilter(req, resp)
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))
}

func MetricsFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	RequestsTotal.WithLabelValues(req.SelectedRoutePath(), strconv.Itoa(resp.StatusCode())).Inc()
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(otelrestful.OTelFilter("gorse-articles"))
	ws.Filter(LogFilter)
	ws.Filter(MetricsFilter)

	ws.Route(ws.GET("/recommend/{user-id}").To(s.getRecommend).
		Doc("Recommend articles to a user. Unknown users get popular articles.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned articles").DataType("integer")).
		Writes(Recommendation{}))
	ws.Route(ws.GET("/popular").To(s.getPopular).
		Doc("Get popular articles.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("n", "number of returned articles").DataType("integer")).
		Writes([]PopularArticle{}))
	ws.Route(ws.GET("/neighbors/{user-id}").To(s.getNeighbors).
		Doc("Get users ranked by the number of shared articles.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"user"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned neighbors").DataType("integer")).
		Writes([]Neighbor{}))
	ws.Route(ws.GET("/users").To(s.getUsers).
		Doc("Count users.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"user"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(UserCount{}))
}

type Recommendation struct {
	ArticleIds []int    `json:"article_ids"`
	Titles     []string `json:"titles"`
	ColdStart  bool     `json:"cold_start"`
}

type PopularArticle struct {
	ArticleId int    `json:"article_id"`
	Title     string `json:"title"`
	Count     int    `json:"count"`
}

type Neighbor struct {
	UserId          int `json:"user_id"`
	Similarity      int `json:"similarity"`
	NumInteractions int `json:"num_interactions"`
}

type UserCount struct {
	Count int `json:"count"`
}

func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

func (s *RestServer) loadRecommender(ctx context.Context) (*logics.Recommender, error) {
	start := time.Now()
	ds, err := dataset.LoadWithTimeout(ctx, s.Source, s.Config.Source.Timeout)
	if err != nil {
		return nil, errors.Trace(err)
	}
	logics.LoadDatasetSeconds.Observe(time.Since(start).Seconds())
	return logics.NewRecommender(ds, logics.WithNumJobs(s.Config.Recommend.NumJobs)), nil
}

func (s *RestServer) getRecommend(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	userId, err := strconv.Atoi(request.PathParameter("user-id"))
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.N)
	if err != nil {
		BadRequest(response, err)
		return
	}
	recommender, err := s.loadRecommender(request.Request.Context())
	if err != nil {
		InternalServerError(response, err)
		return
	}
	recommendation, err := recommender.Recommend(request.Request.Context(), userId, n)
	if errors.Is(err, errors.NotValid) {
		BadRequest(response, err)
		return
	} else if err != nil {
		InternalServerError(response, err)
		return
	}
	GetRecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, Recommendation{
		ArticleIds: recommendation.ArticleIds,
		Titles:     recommendation.Titles,
		ColdStart:  recommendation.ColdStart,
	})
}

func (s *RestServer) getPopular(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.N)
	if err != nil {
		BadRequest(response, err)
		return
	} else if n < 0 {
		BadRequest(response, errors.NotValidf("number of articles %d", n))
		return
	}
	recommender, err := s.loadRecommender(request.Request.Context())
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, lo.Map(recommender.Popularity().TopArticles(n), func(article logics.PopularArticle, _ int) PopularArticle {
		return PopularArticle{
			ArticleId: article.ArticleId,
			Title:     article.Title,
			Count:     article.Count,
		}
	}))
}

func (s *RestServer) getNeighbors(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	userId, err := strconv.Atoi(request.PathParameter("user-id"))
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.N)
	if err != nil {
		BadRequest(response, err)
		return
	} else if n < 0 {
		BadRequest(response, errors.NotValidf("number of neighbors %d", n))
		return
	}
	recommender, err := s.loadRecommender(request.Request.Context())
	if err != nil {
		InternalServerError(response, err)
		return
	}
	neighbors, err := recommender.Ranker().NeighborsOf(request.Request.Context(), userId)
	if errors.Is(err, errors.NotFound) {
		PageNotFound(response, err)
		return
	} else if err != nil {
		InternalServerError(response, err)
		return
	}
	if len(neighbors) > n {
		neighbors = neighbors[:n]
	}
	GetNeighborsSeconds.Observe(time.Since(start).Seconds())
	Ok(response, lo.Map(neighbors, func(neighbor logics.Neighbor, _ int) Neighbor {
		return Neighbor{
			UserId:          neighbor.NeighborId,
			Similarity:      neighbor.Similarity,
			NumInteractions: neighbor.NumInteractions,
		}
	}))
}

func (s *RestServer) getUsers(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	ds, err := dataset.LoadWithTimeout(request.Request.Context(), s.Source, s.Config.Source.Timeout)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, UserCount{Count: ds.CountUsers()})
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content any) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.ResponseLogger(response).Error("unauthorized", zap.String("X-API-Key", apikey))
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
	return false
}
