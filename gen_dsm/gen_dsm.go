package main

/* gen_dsm writes a synthetic digital surface model as a tiled
   GeoTIFF with overviews, producing a source raster the server
   accepts. It is used to generate fixtures for development and for
   the acceptance tests. */

import (
	"flag"
	"log"
	"math"

	"github.com/geo-services/dsmwms/gdalraster"
)

var (
	outPath   = flag.String("o", "dsm.tif", "Output raster path.")
	width     = flag.Int("width", 1024, "Raster width in pixels.")
	height    = flag.Int("height", 1024, "Raster height in pixels.")
	blockSize = flag.Int("block_size", 256, "Tile block size.")
	epsg      = flag.Int("epsg", 28356, "EPSG code of the raster projection.")
	originX   = flag.Float64("x0", 300000.0, "X coordinate of the top-left corner.")
	originY   = flag.Float64("y0", 6200000.0, "Y coordinate of the top-left corner.")
	pixelSize = flag.Float64("pixel_size", 1.0, "Pixel size in projection units.")
	noData    = flag.Float64("nodata", -9999.0, "No-data value.")
	holes     = flag.Bool("holes", true, "Punch no-data holes into the surface.")
)

// surface returns a synthetic elevation for a pixel: rolling hills
// on a tilted plane, roughly 0 to 120 metres.
func surface(x, y, w, h int) float64 {
	fx := float64(x) / float64(w)
	fy := float64(y) / float64(h)
	return 40.0*fx + 20.0*fy +
		30.0*math.Sin(6.0*math.Pi*fx)*math.Cos(4.0*math.Pi*fy) +
		30.0
}

func main() {
	flag.Parse()

	samples := make([]float64, *width**height)
	for y := 0; y < *height; y++ {
		for x := 0; x < *width; x++ {
			v := surface(x, y, *width, *height)
			if *holes && (x/64+y/64)%7 == 0 && x%64 < 8 && y%64 < 8 {
				v = *noData
			}
			samples[y**width+x] = v
		}
	}

	nodata := *noData
	opts := gdalraster.CreateOptions{
		Width:        *width,
		Height:       *height,
		BlockSize:    *blockSize,
		EPSG:         *epsg,
		GeoTransform: [6]float64{*originX, *pixelSize, 0, *originY, 0, -*pixelSize},
		NoData:       &nodata,
		Overviews:    []int{2, 4, 8},
	}

	gdalraster.InitGdal()
	if err := gdalraster.Create(*outPath, opts, samples); err != nil {
		log.Fatalf("Error in writing %s: %v", *outPath, err)
	}
	log.Printf("%s: %dx%d, EPSG:%d, block size %d", *outPath, *width, *height, *epsg, *blockSize)
}
