package processor

import (
	"io/ioutil"
	"os"

	"github.com/geo-services/dsmwms/gdalraster"
	"github.com/geo-services/dsmwms/utils"
)

// RenderMap runs the map rendering chain: clip the raster to the
// bounding box with a resampling read, normalize the samples into
// luminance plus alpha, and encode the result as PNG bytes. The chain
// is a straight-line blocking computation; any component failure
// propagates to the caller for conversion into a protocol error.
func RenderMap(info *gdalraster.Info, stats *utils.RasterStats, bbox [4]float64, width, height int) ([]byte, error) {
	samples, err := gdalraster.ReadBBox(info, bbox, width, height)
	if err != nil {
		return nil, err
	}

	lum, alpha, err := Normalize(samples, stats)
	if err != nil {
		return nil, err
	}

	return EncodePNG(lum, alpha)
}

// RenderMapFile renders the map into a temporary PNG file under
// tempDir and returns its path. The file is removed again on any
// failure past its creation; on success the caller owns it and must
// remove it once the response has been written.
func RenderMapFile(info *gdalraster.Info, stats *utils.RasterStats, bbox [4]float64, width, height int, tempDir string) (string, error) {
	data, err := RenderMap(info, stats, bbox, width, height)
	if err != nil {
		return "", err
	}

	pngPath, err := utils.GetTempFile(tempDir, "png")
	if err != nil {
		return "", err
	}

	if err := ioutil.WriteFile(pngPath, data, 0644); err != nil {
		os.Remove(pngPath)
		return "", err
	}
	return pngPath, nil
}
