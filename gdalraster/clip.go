package gdalraster

// #include "gdal.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/geo-services/dsmwms/utils"
)

// roundHalfAway rounds to the nearest integer with halves going away
// from zero. The read window is snapped to whole pixels with this
// rule on both offsets and lengths; exact alignment does not matter
// for a visual product but the policy has to be consistent so tile
// boundaries do not drift by one pixel between requests.
func roundHalfAway(v float64) int {
	if v < 0 {
		return int(math.Ceil(v - 0.5))
	}
	return int(math.Floor(v + 0.5))
}

// ReadBBox clips the raster to the given native-CRS bounding box and
// returns the samples resampled to outWidth x outHeight. Clipping and
// resizing happen in a single bilinear read so no intermediate
// full-resolution buffer is ever allocated. A bbox entirely outside
// the raster extent is not an error: the returned grid is filled with
// the no-data value.
func ReadBBox(info *Info, bbox [4]float64, outWidth, outHeight int) (*utils.Float64Raster, error) {
	if bbox[0] >= bbox[2] || bbox[1] >= bbox[3] {
		return nil, fmt.Errorf("%w: min must be less than max: %v", ErrInvalidBBox, bbox)
	}
	if outWidth <= 0 || outHeight <= 0 {
		return nil, fmt.Errorf("%w: output size must be positive: %dx%d", ErrInvalidBBox, outWidth, outHeight)
	}

	gt := info.GeoTransform

	// Geographic bbox to fractional pixel window. The north-up
	// transform puts the bbox top edge on the smallest row offset.
	col0 := (bbox[0] - gt[0]) / gt[1]
	col1 := (bbox[2] - gt[0]) / gt[1]
	row0 := (bbox[3] - gt[3]) / gt[5]
	row1 := (bbox[1] - gt[3]) / gt[5]

	xOff := roundHalfAway(col0)
	yOff := roundHalfAway(row0)
	xSize := roundHalfAway(col1 - col0)
	ySize := roundHalfAway(row1 - row0)
	if xSize < 1 {
		xSize = 1
	}
	if ySize < 1 {
		ySize = 1
	}

	fill := 0.0
	if info.NoData != nil {
		fill = *info.NoData
	}

	out := &utils.Float64Raster{
		Data:   make([]float64, outWidth*outHeight),
		Width:  outWidth,
		Height: outHeight,
		NoData: info.NoData,
	}
	if fill != 0 {
		for i := range out.Data {
			out.Data[i] = fill
		}
	}

	// Intersect the read window with the raster extent. Only the
	// overlapping part is read; the rest of the grid keeps the fill.
	ix0, iy0 := xOff, yOff
	if ix0 < 0 {
		ix0 = 0
	}
	if iy0 < 0 {
		iy0 = 0
	}
	ix1, iy1 := xOff+xSize, yOff+ySize
	if ix1 > info.Width {
		ix1 = info.Width
	}
	if iy1 > info.Height {
		iy1 = info.Height
	}
	if ix1 <= ix0 || iy1 <= iy0 {
		return out, nil
	}

	// Destination sub-rectangle covered by the intersected window.
	dx0 := roundHalfAway(float64(ix0-xOff) * float64(outWidth) / float64(xSize))
	dy0 := roundHalfAway(float64(iy0-yOff) * float64(outHeight) / float64(ySize))
	dx1 := roundHalfAway(float64(ix1-xOff) * float64(outWidth) / float64(xSize))
	dy1 := roundHalfAway(float64(iy1-yOff) * float64(outHeight) / float64(ySize))
	if dx1 > outWidth {
		dx1 = outWidth
	}
	if dy1 > outHeight {
		dy1 = outHeight
	}
	if dx1 <= dx0 || dy1 <= dy0 {
		return out, nil
	}

	cPath := C.CString(info.Path)
	defer C.free(unsafe.Pointer(cPath))

	ds := C.GDALOpen(cPath, C.GA_ReadOnly)
	if ds == nil {
		return nil, fmt.Errorf("%w: GDAL could not open dataset: %s", ErrRasterRead, info.Path)
	}
	defer C.GDALClose(ds)

	band := C.GDALGetRasterBand(ds, C.int(1))
	if band == nil {
		return nil, fmt.Errorf("%w: GDALGetRasterBand() failed: %s", ErrRasterRead, info.Path)
	}

	var extra C.GDALRasterIOExtraArg
	extra.nVersion = C.RASTERIO_EXTRA_ARG_CURRENT_VERSION
	extra.eResampleAlg = C.GRIORA_Bilinear

	const sizeofFloat64 = 8
	gerr := C.GDALRasterIOEx(band, C.GF_Read,
		C.int(ix0), C.int(iy0), C.int(ix1-ix0), C.int(iy1-iy0),
		unsafe.Pointer(&out.Data[dy0*outWidth+dx0]),
		C.int(dx1-dx0), C.int(dy1-dy0), C.GDT_Float64,
		C.GSpacing(sizeofFloat64), C.GSpacing(sizeofFloat64*outWidth), &extra)
	if gerr != C.CE_None {
		return nil, fmt.Errorf("%w: error reading window %d,%d %dx%d from %s",
			ErrRasterRead, ix0, iy0, ix1-ix0, iy1-iy0, info.Path)
	}

	return out, nil
}
