// Package magick rasterizes text frames into images with ImageMagick.
//
// The image is drawn to a temporary file beside the target and renamed into
// place only after magick succeeds, so a failed or interrupted call never
// leaves a partial raster that a resumed run would mistake for finished work.
package magick
