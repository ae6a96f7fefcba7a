// Package gdalraster provides read-only access to the digital surface
// model backing this server. All raster I/O goes through GDAL. File
// handles are scoped to one operation: every function opens the
// dataset, reads what it needs and closes it again, so parallel
// requests never contend on a shared handle.
package gdalraster

// #include "gdal.h"
// #include "ogr_srs_api.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"
)

// Info is the immutable descriptor of the source raster. It is built
// once at startup by Describe and shared read-only by all requests.
type Info struct {
	Path         string
	Projection   string
	SRS          string
	GeoTransform [6]float64
	Width        int
	Height       int
	BlockWidth   int
	BlockHeight  int
	Overviews    int
	NoData       *float64
}

// Describe opens the raster read-only and extracts its descriptor.
// The source must be a valid tiled raster: a single-band GeoTIFF in a
// block-tiled layout carrying at least one overview. Anything else
// fails with ErrInvalidRasterFormat since the rendering pipeline
// relies on partial block reads.
func Describe(path string) (*Info, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	ds := C.GDALOpen(cPath, C.GA_ReadOnly)
	if ds == nil {
		return nil, fmt.Errorf("%w: GDAL could not open dataset: %s", ErrInvalidRasterFormat, path)
	}
	defer C.GDALClose(ds)

	driverName := C.GoString(C.GDALGetDriverShortName(C.GDALGetDatasetDriver(ds)))
	if driverName != "GTiff" {
		return nil, fmt.Errorf("%w: expected a GeoTIFF, got driver %s", ErrInvalidRasterFormat, driverName)
	}

	nBands := int(C.GDALGetRasterCount(ds))
	if nBands != 1 {
		return nil, fmt.Errorf("%w: expected a single-band raster, got %d bands", ErrInvalidRasterFormat, nBands)
	}

	info := &Info{
		Path:   path,
		Width:  int(C.GDALGetRasterXSize(ds)),
		Height: int(C.GDALGetRasterYSize(ds)),
	}

	band := C.GDALGetRasterBand(ds, C.int(1))
	var blockX, blockY C.int
	C.GDALGetBlockSize(band, &blockX, &blockY)
	info.BlockWidth = int(blockX)
	info.BlockHeight = int(blockY)
	if info.BlockHeight <= 1 {
		return nil, fmt.Errorf("%w: raster uses a scanline layout, not block tiles", ErrInvalidRasterFormat)
	}

	info.Overviews = int(C.GDALGetOverviewCount(band))
	if info.Overviews < 1 {
		return nil, fmt.Errorf("%w: raster has no reduced-resolution overviews", ErrInvalidRasterFormat)
	}

	var geot [6]C.double
	if C.GDALGetGeoTransform(ds, &geot[0]) != C.CE_None {
		return nil, fmt.Errorf("%w: raster has no geographic transform", ErrInvalidRasterFormat)
	}
	for i := range geot {
		info.GeoTransform[i] = float64(geot[i])
	}
	if info.GeoTransform[2] != 0 || info.GeoTransform[4] != 0 {
		return nil, fmt.Errorf("%w: rotated geographic transforms are not supported", ErrInvalidRasterFormat)
	}

	var hasNoData C.int
	noData := float64(C.GDALGetRasterNoDataValue(band, &hasNoData))
	if hasNoData != 0 {
		info.NoData = &noData
	}

	info.Projection = C.GoString(C.GDALGetProjectionRef(ds))
	info.SRS = srsIdentifier(info.Projection)

	return info, nil
}

// Extent returns the native bounding coordinates of the raster as
// minx, miny, maxx, maxy.
func (info *Info) Extent() [4]float64 {
	gt := info.GeoTransform
	x0 := gt[0]
	x1 := gt[0] + gt[1]*float64(info.Width)
	y0 := gt[3]
	y1 := gt[3] + gt[5]*float64(info.Height)

	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return [4]float64{x0, y0, x1, y1}
}

// ExtentWGS84 reprojects the native extent into geographic WGS84
// coordinates for capability reporting. The four corners of the
// native extent are transformed and their envelope returned.
func (info *Info) ExtentWGS84() ([4]float64, error) {
	var out [4]float64

	ext := info.Extent()

	cWKT := C.CString(info.Projection)
	defer C.free(unsafe.Pointer(cWKT))
	srcSRS := C.OSRNewSpatialReference(cWKT)
	if srcSRS == nil {
		return out, fmt.Errorf("failed to parse raster projection: %s", info.Projection)
	}
	defer C.OSRDestroySpatialReference(srcSRS)

	dstSRS := C.OSRNewSpatialReference(nil)
	defer C.OSRDestroySpatialReference(dstSRS)
	C.OSRImportFromEPSG(dstSRS, C.int(4326))

	C.OSRSetAxisMappingStrategy(srcSRS, C.OAMS_TRADITIONAL_GIS_ORDER)
	C.OSRSetAxisMappingStrategy(dstSRS, C.OAMS_TRADITIONAL_GIS_ORDER)

	trans := C.OCTNewCoordinateTransformation(srcSRS, dstSRS)
	if trans == nil {
		return out, fmt.Errorf("failed to create coordinate transformation to WGS84")
	}
	defer C.OCTDestroyCoordinateTransformation(trans)

	xs := []C.double{C.double(ext[0]), C.double(ext[2]), C.double(ext[0]), C.double(ext[2])}
	ys := []C.double{C.double(ext[1]), C.double(ext[1]), C.double(ext[3]), C.double(ext[3])}
	if C.OCTTransform(trans, C.int(len(xs)), &xs[0], &ys[0], nil) == 0 {
		return out, fmt.Errorf("failed to transform extent to WGS84")
	}

	out = [4]float64{float64(xs[0]), float64(ys[0]), float64(xs[0]), float64(ys[0])}
	for i := 1; i < len(xs); i++ {
		x, y := float64(xs[i]), float64(ys[i])
		if x < out[0] {
			out[0] = x
		}
		if y < out[1] {
			out[1] = y
		}
		if x > out[2] {
			out[2] = x
		}
		if y > out[3] {
			out[3] = y
		}
	}
	return out, nil
}

// srsIdentifier extracts an "AUTHORITY:CODE" identifier out of a
// projection WKT, falling back to an empty string when the WKT does
// not carry one.
func srsIdentifier(wkt string) string {
	if len(wkt) == 0 {
		return ""
	}

	cWKT := C.CString(wkt)
	defer C.free(unsafe.Pointer(cWKT))
	hSRS := C.OSRNewSpatialReference(cWKT)
	if hSRS == nil {
		return ""
	}
	defer C.OSRDestroySpatialReference(hSRS)

	name := C.OSRGetAuthorityName(hSRS, nil)
	code := C.OSRGetAuthorityCode(hSRS, nil)
	if name == nil || code == nil {
		return ""
	}
	return fmt.Sprintf("%s:%s", C.GoString(name), C.GoString(code))
}
