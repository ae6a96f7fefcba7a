package gdalraster

// #include "gdal.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/geo-services/dsmwms/utils"
)

// Scan computes the global minimum and maximum sample value of the
// raster. It walks the native block grid so peak memory stays bounded
// to a single block, and it is run exactly once at startup: the scan
// touches every block of the raster and must never be repeated per
// request.
func Scan(info *Info) (*utils.RasterStats, error) {
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

	block := make([]float64, info.BlockWidth*info.BlockHeight)

	var min, max float64
	found := false

	for yOff := 0; yOff < info.Height; yOff += info.BlockHeight {
		bh := info.BlockHeight
		if yOff+bh > info.Height {
			bh = info.Height - yOff
		}
		for xOff := 0; xOff < info.Width; xOff += info.BlockWidth {
			bw := info.BlockWidth
			if xOff+bw > info.Width {
				bw = info.Width - xOff
			}

			gerr := C.GDALRasterIO(band, C.GF_Read, C.int(xOff), C.int(yOff),
				C.int(bw), C.int(bh), unsafe.Pointer(&block[0]),
				C.int(bw), C.int(bh), C.GDT_Float64, 0, 0)
			if gerr != C.CE_None {
				return nil, fmt.Errorf("%w: error reading block at %d,%d", ErrRasterRead, xOff, yOff)
			}

			for i := 0; i < bw*bh; i++ {
				value := block[i]
				if info.NoData != nil && value == *info.NoData {
					continue
				}
				if !found {
					min, max = value, value
					found = true
					continue
				}
				if value < min {
					min = value
				}
				if value > max {
					max = value
				}
			}
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRaster, info.Path)
	}
	if min == max {
		return nil, fmt.Errorf("%w: flat value %v in %s", ErrDegenerateRaster, min, info.Path)
	}

	return &utils.RasterStats{Min: min, Max: max, NoData: info.NoData}, nil
}
