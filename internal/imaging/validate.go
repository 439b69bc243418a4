/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imaging validates uploads and turns them into square, fixed-size PNG frames.
// A Session models the interactive editor: a square crop box over a movable, zoomable and
// rotatable image. Confirm renders the crop with Catmull-Rom resampling.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"regexp"
)

// MaxUploadBytes is the largest accepted upload (10 MiB).
const MaxUploadBytes = 10 * 1024 * 1024

const (
	msgBadType  = "Please upload a PNG or JPG image"
	msgTooLarge = "Image is too large. Maximum size is 10 MB"
)

var acceptedType = regexp.MustCompile(`image/(png|jpeg|jpg)`)

// ValidationError rejects an upload before any state change. Message is user facing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateUpload checks the declared content type and size of an upload.
func ValidateUpload(contentType string, size int64) error {
	if !acceptedType.MatchString(contentType) {
		return &ValidationError{Message: msgBadType}
	}
	if size > MaxUploadBytes {
		return &ValidationError{Message: msgTooLarge}
	}
	return nil
}

// DecodeUpload reads at most MaxUploadBytes+1 bytes from r and decodes a PNG or JPEG.
// It returns the image and the detected format name.
func DecodeUpload(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, "", &ValidationError{Message: msgTooLarge}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode upload: %w", err)
	}
	if format != "png" && format != "jpeg" {
		return nil, "", &ValidationError{Message: msgBadType}
	}
	return img, format, nil
}
