// Copyright 2025 gorse Project Authors
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

// Dict assigns dense indices to strings in first-seen order.
type Dict struct {
	si map[string]int
	is []string
}

func NewDict() (d *Dict) {
	d = &Dict{map[string]int{}, []string{}}
	return
}

// Id returns the index of s, assigning the next one if s is new.
func (d *Dict) Id(s string) (y int) {
	if y, ok := d.si[s]; ok {
		return y
	}

	y = len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	return
}

// Lookup returns the index of s without assigning one.
func (d *Dict) Lookup(s string) (int, bool) {
	y, ok := d.si[s]
	return y, ok
}

func (d *Dict) String(id int) (s string, ok bool) {
	if id < 0 || id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}
