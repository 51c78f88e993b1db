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
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

const (
	utf8BOM       = "\ufeff"
	maxLineSize   = 16 * 1024 * 1024
	checkInterval = 4096
)

// ReadLines parse fields of each line for csv file. Quoted fields may contain the
// separator, escaped quotes ("") and line breaks. The handler receives the line number
// and the fields of each record and stops the scan by returning false.
func ReadLines(sc *bufio.Scanner, sep rune, handler func(int, []string) bool) error {
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	for sc.Scan() {
		line := []rune(sc.Text())
		// start of line
		if quoted {
			builder.WriteString("\r\n")
		}
		// parse line
		for i := 0; i < len(line); i++ {
			if line[i] == sep && !quoted {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		// end of line
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if !handler(lineCount, fields) {
				return nil
			}
			fields = []string{}
		}
		lineCount++
	}
	if err := sc.Err(); err != nil {
		return errors.Trace(err)
	}
	if quoted {
		return errors.NotValidf("unterminated quoted field at line %d", lineCount)
	}
	return nil
}

// ParseArticleId parses an article id written either as an integer or as an integral
// float such as "1430.0".
func ParseArticleId(text string) (int, error) {
	text = strings.TrimSpace(text)
	if id, err := strconv.Atoi(text); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.NotValidf("article id %q", text)
	}
	// float64(math.MaxInt) rounds up to 2^63 on 64-bit platforms
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, errors.NotValidf("article id %q", text)
	}
	return int(f), nil
}

// CSVSource reads interactions from a delimited file with a header row.
type CSVSource struct {
	path string
	opts Options
}

func NewCSVSource(path string, opts ...Option) *CSVSource {
	return &CSVSource{
		path: strings.TrimPrefix(path, FilePrefix),
		opts: NewOptions(opts...),
	}
}

func (s *CSVSource) Load(ctx context.Context) (*Dataset, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, newLoadError(s.path, err)
	}
	defer file.Close()
	d, err := ReadCSV(ctx, file, s.opts)
	if err != nil {
		return nil, newLoadError(s.path, err)
	}
	return d, nil
}

func (s *CSVSource) Close() error {
	return nil
}

// ReadCSV reads interactions from a delimited stream. Columns other than the user,
// article and title columns are ignored.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) (*Dataset, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	d := NewDataset()
	var (
		header             = true
		userIndex          int
		articleIndex       int
		titleIndex         int
		numRequiredColumns int
		handleErr          error
	)
	err := ReadLines(sc, opts.Separator, func(line int, fields []string) bool {
		if header {
			header = false
			fields[0] = strings.TrimPrefix(fields[0], utf8BOM)
			columns := lo.Map(fields, func(field string, _ int) string {
				return strings.TrimSpace(field)
			})
			var found bool
			for _, column := range []struct {
				name  string
				index *int
			}{
				{opts.UserColumn, &userIndex},
				{opts.ArticleColumn, &articleIndex},
				{opts.TitleColumn, &titleIndex},
			} {
				if *column.index, found = lo.Find(lo.Range(len(columns)), func(i int) bool {
					return columns[i] == column.name
				}); !found {
					handleErr = errors.NotFoundf("column %q", column.name)
					return false
				}
			}
			numRequiredColumns = lo.Max([]int{userIndex, articleIndex, titleIndex}) + 1
			return true
		}
		if line%checkInterval == 0 {
			if handleErr = ctx.Err(); handleErr != nil {
				return false
			}
		}
		// skip blank lines
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields) < numRequiredColumns {
			handleErr = errors.NotValidf("line %d has %d fields, expected at least %d", line+1, len(fields), numRequiredColumns)
			return false
		}
		articleId, err := ParseArticleId(fields[articleIndex])
		if err != nil {
			handleErr = errors.Annotatef(err, "line %d", line+1)
			return false
		}
		d.AddInteraction(RawInteraction{
			User:      fields[userIndex],
			ArticleId: articleId,
			Title:     fields[titleIndex],
		})
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if handleErr != nil {
		return nil, errors.Trace(handleErr)
	}
	if header {
		return nil, errors.NotFoundf("header row")
	}
	return d, nil
}
