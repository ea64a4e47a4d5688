/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ocr

import (
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
)

// PreprocessPNG converts the render to grayscale and doubles its resolution
// with Catmull-Rom resampling, which measurably improves tesseract accuracy
// on small screenplay type. The file is rewritten in place.
func PreprocessPNG(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open render: %w", err)
	}
	src, err := png.Decode(f)
	cerr := f.Close()
	if err != nil {
		return fmt.Errorf("decode render: %w", err)
	}
	if cerr != nil {
		return fmt.Errorf("close render: %w", cerr)
	}

	b := src.Bounds()
	gray := image.NewGray(b)
	xdraw.Draw(gray, b, src, b.Min, xdraw.Src)

	scaled := image.NewGray(image.Rect(0, 0, b.Dx()*2, b.Dy()*2))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), gray, b, xdraw.Src, nil)

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rewrite render: %w", err)
	}
	if err := png.Encode(out, scaled); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode render: %w", err)
	}
	return out.Close()
}
