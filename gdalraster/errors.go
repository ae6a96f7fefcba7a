package gdalraster

import "errors"

// Startup errors. Any of these aborts service start: a raster that
// cannot be scanned cannot be normalized later.
var (
	ErrInvalidRasterFormat = errors.New("invalid raster format")
	ErrEmptyRaster         = errors.New("raster has no valid samples")
	ErrDegenerateRaster    = errors.New("raster minimum equals maximum")
)

// Per-request errors, surfaced as protocol-level failures by the
// dispatcher.
var (
	ErrInvalidBBox = errors.New("invalid bbox")
	ErrRasterRead  = errors.New("raster read error")
)
