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

	"github.com/gorse-io/articles/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// MongoInteraction is a document of the interactions collection. Seq keeps the log order.
type MongoInteraction struct {
	Seq       int64  `bson:"seq"`
	Email     string `bson:"email"`
	ArticleId int    `bson:"article_id"`
	Title     string `bson:"title"`
}

// MongoSource reads and writes interactions in MongoDB.
type MongoSource struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

func openMongoSource(path string, opts Options) (*MongoSource, error) {
	cs, err := connstring.ParseAndValidate(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	source := &MongoSource{
		TablePrefix: storage.TablePrefix(opts.TablePrefix),
		dbName:      cs.Database,
	}
	clientOpts := options.Client()
	clientOpts.Monitor = otelmongo.NewMonitor()
	clientOpts.ApplyURI(path)
	if opts.Pool.MaxOpenConns > 0 {
		clientOpts.SetMaxPoolSize(uint64(opts.Pool.MaxOpenConns))
	}
	if source.client, err = mongo.Connect(context.Background(), clientOpts); err != nil {
		return nil, errors.Trace(err)
	}
	return source, nil
}

func (m *MongoSource) collection() *mongo.Collection {
	return m.client.Database(m.dbName).Collection(m.InteractionsTable())
}

// Init creates the interactions collection and its order index.
func (m *MongoSource) Init(ctx context.Context) error {
	d := m.client.Database(m.dbName)
	collections, err := d.ListCollectionNames(ctx, bson.M{"name": m.InteractionsTable()})
	if err != nil {
		return errors.Trace(err)
	}
	if len(collections) == 0 {
		if err = d.CreateCollection(ctx, m.InteractionsTable()); err != nil {
			return errors.Trace(err)
		}
	}
	_, err = m.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Trace(err)
}

func (m *MongoSource) nextSeq(ctx context.Context) (int64, error) {
	var last MongoInteraction
	err := m.collection().FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	} else if err != nil {
		return 0, errors.Trace(err)
	}
	return last.Seq + 1, nil
}

func (m *MongoSource) BatchInsert(ctx context.Context, interactions []RawInteraction) error {
	if len(interactions) == 0 {
		return nil
	}
	seq, err := m.nextSeq(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for _, chunk := range lo.Chunk(interactions, batchSize) {
		docs := make([]any, 0, len(chunk))
		for _, interaction := range chunk {
			docs = append(docs, MongoInteraction{
				Seq:       seq,
				Email:     interaction.User,
				ArticleId: interaction.ArticleId,
				Title:     interaction.Title,
			})
			seq++
		}
		if _, err = m.collection().InsertMany(ctx, docs); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (m *MongoSource) Load(ctx context.Context) (*Dataset, error) {
	cur, err := m.collection().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, newLoadError(m.InteractionsTable(), err)
	}
	defer cur.Close(ctx)
	d := NewDataset()
	for cur.Next(ctx) {
		var doc MongoInteraction
		if err = cur.Decode(&doc); err != nil {
			return nil, newLoadError(m.InteractionsTable(), err)
		}
		d.AddInteraction(RawInteraction{
			User:      doc.Email,
			ArticleId: doc.ArticleId,
			Title:     doc.Title,
		})
	}
	if err = cur.Err(); err != nil {
		return nil, newLoadError(m.InteractionsTable(), err)
	}
	return d, nil
}

func (m *MongoSource) Close() error {
	return m.client.Disconnect(context.Background())
}
