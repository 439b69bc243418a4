/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"strconv"
	"strings"

	"spritetool/internal/domain"
)

// parseFPS reads the FPS field. Unparsable input falls back to the default rate and the
// result is clamped to the supported range.
func parseFPS(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n == 0 {
		return domain.DefaultFPS
	}
	return domain.ClampFPS(n)
}

// frameLabel renders the "Frame i / n" indicator. With no populated frames it shows the
// slot count instead.
func frameLabel(next, populated, slots int) string {
	total := populated
	if total == 0 {
		total = slots
	}
	return fmt.Sprintf("Frame %d / %d", next+1, total)
}

// animationChoices lists "name (n frames)" entries for the animation picker, in figure order.
func animationChoices(f *domain.Figure) (labels []string, ids []string) {
	if f == nil {
		return nil, nil
	}
	for _, a := range f.Animations {
		labels = append(labels, fmt.Sprintf("%s (%d frames)", a.Name, len(a.Populated())))
		ids = append(ids, a.ID)
	}
	return labels, ids
}
