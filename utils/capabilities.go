package utils

import (
	"bytes"
	"fmt"
	"io/ioutil"
)

// CapabilitiesData is the typed view rendered into the
// GetCapabilities template. Only the mutable fields of the document
// are injected; the namespace declarations are fixed in the template.
type CapabilitiesData struct {
	Conf *Config
	// CRS identifier of the source raster, e.g. "EPSG:28356".
	CRS string
	// BBox is the native extent of the raster: minx, miny, maxx, maxy.
	BBox [4]float64
	// GeoBBox is the extent reprojected to WGS84: west, south, east, north.
	GeoBBox [4]float64
}

const fallbackCapabilities = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<ServiceExceptionReport version="1.3.0" xmlns="http://www.opengis.net/ogc">
  <ServiceException>Failed to generate the capabilities document</ServiceException>
</ServiceExceptionReport>
`

// GenerateCapabilities renders the WMS GetCapabilities document from
// the template under DataDir. Errors are returned so the caller can
// degrade to the static error variant; a capabilities request never
// results in an HTTP error status.
func GenerateCapabilities(data *CapabilitiesData) ([]byte, error) {
	if len(data.Conf.ServiceConfig.OWSHostname) == 0 {
		return nil, fmt.Errorf("capabilities: no service hostname resolved")
	}

	var buf bytes.Buffer
	err := ExecuteWriteTemplateFile(&buf, data, DataDir+"/templates/WMS_GetCapabilities.tpl")
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CapabilitiesErrorDocument returns the static error-variant document
// served when capabilities generation fails.
func CapabilitiesErrorDocument() []byte {
	doc, err := ioutil.ReadFile(DataDir + "/templates/WMS_ServiceException.tpl")
	if err != nil {
		return []byte(fallbackCapabilities)
	}
	return doc
}
