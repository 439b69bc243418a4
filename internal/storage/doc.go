/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the project collection.
// A Gateway serializes every project into one versioned JSON envelope stored under a single
// key of a KV backend. Backends: SQLite (default, pure Go), a JSON file with timestamped
// backups, Redis, Postgres and an in-memory map for tests.
// Unreadable or corrupt documents are treated as an empty collection.
package storage
