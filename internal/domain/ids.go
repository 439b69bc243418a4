/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "github.com/google/uuid"

// ID prefixes, one per entity kind.
const (
	ProjectIDPrefix   = "project"
	FigureIDPrefix    = "figure"
	AnimationIDPrefix = "animation"
	FrameIDPrefix     = "frame"
)

// NewID returns a random id of the form "<prefix>-<uuid>".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// DerivedID returns a stable id of the form "<prefix>-<uuid>" for a name, so repeated
// derivations from the same parent id agree.
func DerivedID(prefix, name string) string {
	return prefix + "-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
