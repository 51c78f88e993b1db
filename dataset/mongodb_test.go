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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

func mongoURI() string {
	return os.Getenv("MONGO_URI")
}

type MongoTestSuite struct {
	baseTestSuite
}

func (suite *MongoTestSuite) SetupTest() {
	var err error
	prefix := fmt.Sprintf("test_%d_", time.Now().UnixNano())
	suite.Writer, err = OpenWriter(mongoURI(), WithTablePrefix(prefix))
	suite.NoError(err)
	suite.NoError(suite.Init(context.Background()))
}

func (suite *MongoTestSuite) TearDownTest() {
	source := suite.Writer.(*MongoSource)
	suite.NoError(source.collection().Drop(context.Background()))
	suite.NoError(suite.Close())
}

func TestMongo(t *testing.T) {
	if mongoURI() == "" {
		t.Skip("MONGO_URI is not set")
	}
	suite.Run(t, new(MongoTestSuite))
}
