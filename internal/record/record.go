// Copyright 2026 The WorkSafe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package record defines the closed set of entity kinds that documents and
// audit entries may reference. Free-form kind strings silently match zero
// rows; a typed kind fails at parse time instead.
package record

import (
	"errors"
	"fmt"
)

// Kind identifies an entity type a record reference can point at.
type Kind string

const (
	KindCompany  Kind = "company"
	KindWorksite Kind = "worksite"
	KindEmployee Kind = "employee"
	KindStaff    Kind = "staff"
	KindDocument Kind = "document"
	KindTenant   Kind = "tenant"
	KindUser     Kind = "user"
)

// ErrUnknownKind is returned when a kind string is not in the closed set.
var ErrUnknownKind = errors.New("unknown record kind")

var kinds = map[Kind]struct{}{
	KindCompany:  {},
	KindWorksite: {},
	KindEmployee: {},
	KindStaff:    {},
	KindDocument: {},
	KindTenant:   {},
	KindUser:     {},
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind validates a kind string against the closed set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Ref is a typed reference to one record of a known kind.
type Ref struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// ParseRef builds a Ref from raw kind and id values.
func ParseRef(kind string, id int64) (Ref, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Ref{}, err
	}
	if id <= 0 {
		return Ref{}, fmt.Errorf("invalid record id: %d", id)
	}
	return Ref{Kind: k, ID: id}, nil
}
