package processor

import (
	"fmt"

	"github.com/geo-services/dsmwms/utils"
)

// Normalize maps raw elevation samples onto an 8-bit luminance
// channel plus an alpha channel using the global raster statistics.
// No-data samples are substituted with the global minimum before the
// linear stretch so they cannot skew the lower bound, and are masked
// out through the alpha channel instead. Pure function, no I/O.
func Normalize(samples *utils.Float64Raster, stats *utils.RasterStats) (*utils.ByteRaster, *utils.ByteRaster, error) {
	if samples.Width <= 0 || samples.Height <= 0 || len(samples.Data) != samples.Width*samples.Height {
		return nil, nil, fmt.Errorf("inconsistent sample grid: %dx%d with %d samples", samples.Width, samples.Height, len(samples.Data))
	}
	if stats.Max <= stats.Min {
		return nil, nil, fmt.Errorf("invalid statistics: min %v, max %v", stats.Min, stats.Max)
	}

	lum := &utils.ByteRaster{Data: make([]uint8, len(samples.Data)), Width: samples.Width, Height: samples.Height}
	alpha := &utils.ByteRaster{Data: make([]uint8, len(samples.Data)), Width: samples.Width, Height: samples.Height}

	scale := 255.0 / (stats.Max - stats.Min)
	for i, value := range samples.Data {
		if stats.NoData != nil && value == *stats.NoData {
			// alpha stays 0; the substituted minimum maps to
			// luminance 0 anyway
			continue
		}

		normalized := (value - stats.Min) * scale
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 255 {
			normalized = 255
		}
		lum.Data[i] = uint8(normalized)
		alpha.Data[i] = 0xFF
	}

	return lum, alpha, nil
}
