// Copyright 2025 Poiesic Systems
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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a uniqueness violation, such as inserting a
	// second conversation with the same external ID.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidRange indicates a date-range query with neither bound
	// supplied. Callers must filter with at least one bound.
	ErrInvalidRange = errors.New("date range requires at least one bound")

	// ErrEmptyIndex indicates a nearest-neighbor lookup against a store
	// holding no embeddings at all. Distinct from "no good matches", which
	// cannot occur once any embedding exists.
	ErrEmptyIndex = errors.New("no embeddings stored")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
