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
	"database/sql"
	"strings"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorse-io/articles/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const batchSize = 1000

// SQLInteraction is a row of the interactions table. Id keeps the log order.
type SQLInteraction struct {
	Id        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Email     string `gorm:"column:email;type:varchar(256);not null"`
	ArticleId int    `gorm:"column:article_id;index;not null"`
	Title     string `gorm:"column:title;type:text;not null"`
}

// SQLSource reads and writes interactions in MySQL, Postgres or SQLite.
type SQLSource struct {
	storage.TablePrefix
	client *sql.DB
	gormDB *gorm.DB
}

func openSQLSource(path string, opts Options) (*SQLSource, error) {
	var err error
	source := &SQLSource{TablePrefix: storage.TablePrefix(opts.TablePrefix)}
	gormConfig := storage.NewGORMConfig(opts.TablePrefix)
	if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"charset": "utf8mb4",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		if source.client, err = otelsql.Open("mysql", name,
			otelsql.WithAttributes(attribute.String("db.system", "mysql")),
		); err != nil {
			return nil, errors.Trace(err)
		}
		source.gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: source.client}), gormConfig)
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		if source.client, err = otelsql.Open("postgres", path,
			otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		); err != nil {
			return nil, errors.Trace(err)
		}
		source.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: source.client}), gormConfig)
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{"_pragma", "busy_timeout(10000)"},
			{"_pragma", "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		name := path[len(storage.SQLitePrefix):]
		if source.client, err = otelsql.Open("sqlite", name,
			otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
		); err != nil {
			return nil, errors.Trace(err)
		}
		source.gormDB, err = gorm.Open(sqlite.Dialector{Conn: source.client}, gormConfig)
	} else {
		return nil, errors.NotSupportedf("database %s", path)
	}
	if err != nil {
		_ = source.client.Close()
		return nil, errors.Trace(err)
	}
	storage.ApplySQLPool(source.client, opts.Pool)
	return source, nil
}

// Init creates the interactions table.
func (s *SQLSource) Init(ctx context.Context) error {
	return errors.Trace(s.gormDB.WithContext(ctx).Table(s.InteractionsTable()).AutoMigrate(&SQLInteraction{}))
}

func (s *SQLSource) BatchInsert(ctx context.Context, interactions []RawInteraction) error {
	if len(interactions) == 0 {
		return nil
	}
	rows := lo.Map(interactions, func(interaction RawInteraction, _ int) SQLInteraction {
		return SQLInteraction{
			Email:     interaction.User,
			ArticleId: interaction.ArticleId,
			Title:     interaction.Title,
		}
	})
	return errors.Trace(s.gormDB.WithContext(ctx).Table(s.InteractionsTable()).CreateInBatches(rows, batchSize).Error)
}

func (s *SQLSource) Load(ctx context.Context) (*Dataset, error) {
	rows, err := s.gormDB.WithContext(ctx).
		Table(s.InteractionsTable()).
		Select("email, article_id, title").
		Order("id").
		Rows()
	if err != nil {
		return nil, newLoadError(s.InteractionsTable(), err)
	}
	defer rows.Close()
	d := NewDataset()
	for rows.Next() {
		var raw RawInteraction
		if err = rows.Scan(&raw.User, &raw.ArticleId, &raw.Title); err != nil {
			return nil, newLoadError(s.InteractionsTable(), err)
		}
		d.AddInteraction(raw)
	}
	if err = rows.Err(); err != nil {
		return nil, newLoadError(s.InteractionsTable(), err)
	}
	return d, nil
}

func (s *SQLSource) Close() error {
	return s.client.Close()
}
