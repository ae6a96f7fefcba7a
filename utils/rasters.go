package utils

// ByteRaster holds one 8-bit channel of a rendered tile.
type ByteRaster struct {
	Data          []uint8
	Height, Width int
}

// Float64Raster holds raw elevation samples read from the source
// raster. NoData carries the sentinel value of the source band so the
// scaler can mask it out downstream.
type Float64Raster struct {
	Data          []float64
	Height, Width int
	NoData        *float64
}

// RasterStats holds the global sample statistics computed once at
// startup. Min is guaranteed to be strictly less than Max.
type RasterStats struct {
	Min    float64
	Max    float64
	NoData *float64
}
