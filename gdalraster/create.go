package gdalraster

// #include "gdal.h"
// #include "ogr_srs_api.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"
)

// CreateOptions describes a raster to be written by Create.
type CreateOptions struct {
	Width, Height int
	BlockSize     int
	EPSG          int
	GeoTransform  [6]float64
	NoData        *float64
	// Decimation factors of the overviews to build, e.g. {2, 4}.
	Overviews []int
}

// Create writes samples out as a tiled single-band Float64 GeoTIFF
// with overviews, the layout Describe expects of a source raster.
// The server itself never writes rasters; this backs the gen_dsm
// fixture tool and the package tests, which need synthetic sources
// with a known layout.
func Create(path string, opts CreateOptions, samples []float64) error {
	if len(samples) != opts.Width*opts.Height {
		return fmt.Errorf("expected %d samples, got %d", opts.Width*opts.Height, len(samples))
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = 256
	}

	driverNameC := C.CString("GTiff")
	defer C.free(unsafe.Pointer(driverNameC))
	hDriver := C.GDALGetDriverByName(driverNameC)
	if hDriver == nil {
		return fmt.Errorf("GTiff driver not available")
	}

	driverOptions := []*C.char{
		C.CString("TILED=YES"),
		C.CString(fmt.Sprintf("BLOCKXSIZE=%d", opts.BlockSize)),
		C.CString(fmt.Sprintf("BLOCKYSIZE=%d", opts.BlockSize)),
	}
	for _, opt := range driverOptions {
		defer C.free(unsafe.Pointer(opt))
	}
	// NULL pointer is used to terminate the option array by gdal
	driverOptions = append(driverOptions, nil)

	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))
	hDstDS := C.GDALCreate(hDriver, pathC, C.int(opts.Width), C.int(opts.Height), C.int(1), C.GDT_Float64, &driverOptions[0])
	if hDstDS == nil {
		return fmt.Errorf("error creating raster %s", path)
	}
	defer C.GDALClose(hDstDS)

	hSRS := C.OSRNewSpatialReference(nil)
	defer C.OSRDestroySpatialReference(hSRS)
	C.OSRImportFromEPSG(hSRS, C.int(opts.EPSG))
	var projWKT *C.char
	defer C.free(unsafe.Pointer(projWKT))
	C.OSRExportToWkt(hSRS, &projWKT)
	C.GDALSetProjection(hDstDS, projWKT)

	geot := make([]C.double, 6)
	for i, g := range opts.GeoTransform {
		geot[i] = C.double(g)
	}
	C.GDALSetGeoTransform(hDstDS, &geot[0])

	hBand := C.GDALGetRasterBand(hDstDS, C.int(1))
	if opts.NoData != nil {
		C.GDALSetRasterNoDataValue(hBand, C.double(*opts.NoData))
	}

	gerr := C.GDALRasterIO(hBand, C.GF_Write, 0, 0, C.int(opts.Width), C.int(opts.Height),
		unsafe.Pointer(&samples[0]), C.int(opts.Width), C.int(opts.Height), C.GDT_Float64, 0, 0)
	if gerr != C.CE_None {
		return fmt.Errorf("error writing raster band to %s", path)
	}

	levels := opts.Overviews
	if len(levels) == 0 {
		levels = []int{2}
	}
	levelsC := make([]C.int, len(levels))
	for i, l := range levels {
		levelsC[i] = C.int(l)
	}
	resamplingC := C.CString("AVERAGE")
	defer C.free(unsafe.Pointer(resamplingC))
	gerr = C.GDALBuildOverviews(hDstDS, resamplingC, C.int(len(levelsC)), &levelsC[0], 0, nil, nil, nil)
	if gerr != C.CE_None {
		return fmt.Errorf("error building overviews for %s", path)
	}

	return nil
}
