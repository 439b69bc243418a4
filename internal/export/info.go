/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"

	"spritetool/internal/domain"
)

// avgFrameKB is the rough size of one exported frame.
const avgFrameKB = 100

// Info summarizes what exporting an animation would produce.
type Info struct {
	FrameCount    int    `json:"frameCount"`
	EstimatedSize string `json:"estimatedSize"`
	HasFrames     bool   `json:"hasFrames"`
}

// InfoFor estimates the export of a from its populated frames.
func InfoFor(a domain.Animation) Info {
	n := len(a.Populated())
	kb := n * avgFrameKB
	size := fmt.Sprintf("%d KB", kb)
	if kb > 1024 {
		size = fmt.Sprintf("%.1f MB", float64(kb)/1024)
	}
	return Info{FrameCount: n, EstimatedSize: size, HasFrames: n > 0}
}
