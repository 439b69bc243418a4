/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// PNGPrefix starts every payload produced by this package.
const PNGPrefix = "data:image/png;base64,"

// ErrNotDataURL is returned for payloads that are not base64 data URLs.
var ErrNotDataURL = errors.New("not a base64 data URL")

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// PNGDataURL wraps PNG bytes in a data URL.
func PNGDataURL(pngBytes []byte) string {
	return PNGPrefix + base64.StdEncoding.EncodeToString(pngBytes)
}

// ToDataURL encodes img as a PNG data URL.
func ToDataURL(img image.Image) (string, error) {
	b, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return PNGDataURL(b), nil
}

// ParseDataURL splits a base64 data URL into its media type and decoded bytes.
func ParseDataURL(s string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mediaType, isB64 := strings.CutSuffix(meta, ";base64")
	if !isB64 {
		return "", nil, ErrNotDataURL
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return mediaType, data, nil
}

// DecodeDataURL decodes the image carried by a data URL.
func DecodeDataURL(s string) (image.Image, error) {
	_, data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// PNGBytes returns the PNG bytes of a payload, re-encoding other formats.
func PNGBytes(s string) ([]byte, error) {
	mt, data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	if mt == "image/png" {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return EncodePNG(img)
}
