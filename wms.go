package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/geo-services/dsmwms/gdalraster"
	"github.com/geo-services/dsmwms/metrics"
	proc "github.com/geo-services/dsmwms/processor"
	"github.com/geo-services/dsmwms/utils"

	geo "github.com/nci/geometry"
)

// writeJSONError reports a protocol error as a JSON body so clients
// never have to scrape a plain-text diagnostic. path carries the
// raster path for read failures and is omitted when empty.
func writeJSONError(w http.ResponseWriter, status int, errName, message, path string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(path) > 0 {
		fmt.Fprintf(w, `{ "error": %q, "message": %q, "path": %q }`, errName, message, path)
	} else {
		fmt.Fprintf(w, `{ "error": %q, "message": %q }`, errName, message)
	}
}

// featureInfoResponse echoes a GetFeatureInfo request back as an
// empty GeoJSON feature collection. The single band has no attribute
// table to query so the response carries the request context and the
// clicked location only.
type featureInfoResponse struct {
	Type         string          `json:"type"`
	FeatureCount int             `json:"feature_count"`
	Features     []geo.Feature   `json:"features"`
	Service      string          `json:"service"`
	Request      string          `json:"request"`
	Version      string          `json:"version,omitempty"`
	QueryLayers  []string        `json:"query_layers,omitempty"`
	InfoFormat   string          `json:"info_format,omitempty"`
	Location     json.RawMessage `json:"location,omitempty"`
}

// pointFeature builds a GeoJSON point Feature for the queried
// coordinate. The geometry types only expose JSON codecs so the
// feature is assembled through them.
func pointFeature(x, y float64) json.RawMessage {
	doc := fmt.Sprintf(`{"type":"Feature","geometry":{"type":"Point","coordinates":[%f,%f]}}`, x, y)
	var feat geo.Feature
	if err := json.Unmarshal([]byte(doc), &feat); err != nil {
		return nil
	}
	out, err := json.Marshal(&feat)
	if err != nil {
		return nil
	}
	return out
}

func (s *wmsService) serveWMS(params utils.WMSParams, r *http.Request, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	if params.Request == nil {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidRequest", `request value "" not supported, options are GetCapabilities, GetMap, GetFeatureInfo`, "")
		return
	}

	reqURL := r.URL.String()

	switch strings.ToLower(*params.Request) {
	case "getcapabilities":
		if params.Version != nil && !utils.CheckWMSVersion(*params.Version) {
			metricsCollector.Info.HTTPStatus = 400
			writeJSONError(w, 400, "InvalidVersion", fmt.Sprintf("this server can only accept WMS requests compliant with version 1.1.1 and 1.3.0: %s", reqURL), "")
			return
		}

		s.capsOnce.Do(func() {
			s.caps = s.generateCapabilities(r)
		})

		w.Header().Set("Content-Type", "text/xml")
		w.Write(s.caps)

	case "getmap":
		s.serveGetMap(params, r, w, metricsCollector)

	case "getfeatureinfo":
		s.serveGetFeatureInfo(params, w, metricsCollector)

	default:
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidRequest", fmt.Sprintf("request value %q not supported, options are GetCapabilities, GetMap, GetFeatureInfo", *params.Request), "")
	}
}

// generateCapabilities renders the capabilities document once; the
// published base URL is pinned by the first request when the config
// does not name a hostname. Generation failures degrade to the static
// exception document, a capabilities request never errors at the
// HTTP level.
func (s *wmsService) generateCapabilities(r *http.Request) []byte {
	geoBBox, err := s.info.ExtentWGS84()
	if err != nil {
		Error.Printf("capabilities geographic extent: %v\n", err)
		return utils.CapabilitiesErrorDocument()
	}

	caps, err := utils.GenerateCapabilities(&utils.CapabilitiesData{
		Conf:    s.conf.Copy(r),
		CRS:     s.info.SRS,
		BBox:    s.info.Extent(),
		GeoBBox: geoBBox,
	})
	if err != nil {
		Error.Printf("capabilities generation: %v\n", err)
		return utils.CapabilitiesErrorDocument()
	}
	return caps
}

func (s *wmsService) serveGetMap(params utils.WMSParams, r *http.Request, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	reqURL := r.URL.String()

	if params.Version == nil || !utils.CheckWMSVersion(*params.Version) {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidVersion", fmt.Sprintf("this server can only accept WMS requests compliant with version 1.1.1 and 1.3.0: %s", reqURL), "")
		return
	}
	if len(params.BBox) != 4 {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidBBox", fmt.Sprintf("request %s should contain a valid 'bbox' parameter", reqURL), "")
		return
	}
	if params.Height == nil || params.Width == nil {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidSize", fmt.Sprintf("request %s should contain valid 'width' and 'height' parameters", reqURL), "")
		return
	}
	if params.CRS != nil && !strings.EqualFold(*params.CRS, s.info.SRS) {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidCRS", fmt.Sprintf("this layer is only published in %s: %s", s.info.SRS, reqURL), "")
		return
	}

	// WMS 1.3.0 swaps the axis order for geographic coordinate
	// systems.
	if strings.EqualFold(s.info.SRS, "EPSG:4326") && *params.Version == "1.3.0" {
		params.BBox = []float64{params.BBox[1], params.BBox[0], params.BBox[3], params.BBox[2]}
	}

	if *params.Height > s.conf.Layer.WmsMaxHeight || *params.Width > s.conf.Layer.WmsMaxWidth {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidSize", fmt.Sprintf("requested width/height is too large, max width:%d, height:%d", s.conf.Layer.WmsMaxWidth, s.conf.Layer.WmsMaxHeight), "")
		return
	}

	bbox := [4]float64{params.BBox[0], params.BBox[1], params.BBox[2], params.BBox[3]}

	t0 := time.Now()
	metricsCollector.Info.Render.Width = *params.Width
	metricsCollector.Info.Render.Height = *params.Height

	tempFile, err := proc.RenderMapFile(s.info, s.stats, bbox, *params.Width, *params.Height, s.conf.ServiceConfig.TempDir)
	metricsCollector.Info.Render.Duration = time.Since(t0)
	if err != nil {
		Error.Printf("%s\n", err)
		switch {
		case errors.Is(err, gdalraster.ErrInvalidBBox):
			metricsCollector.Info.HTTPStatus = 400
			writeJSONError(w, 400, "InvalidBBox", err.Error(), "")
		case errors.Is(err, gdalraster.ErrRasterRead):
			status := 500
			if _, statErr := os.Stat(s.info.Path); os.IsNotExist(statErr) {
				status = 404
			}
			metricsCollector.Info.HTTPStatus = status
			writeJSONError(w, status, "RasterReadError", err.Error(), s.info.Path)
		case errors.Is(err, proc.ErrEncoding):
			metricsCollector.Info.HTTPStatus = 500
			writeJSONError(w, 500, "EncodingError", err.Error(), "")
		default:
			metricsCollector.Info.HTTPStatus = 500
			writeJSONError(w, 500, "RenderError", err.Error(), "")
		}
		return
	}
	defer utils.RemoveTempFile(tempFile)

	fileHandle, err := os.Open(tempFile)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 500
		writeJSONError(w, 500, "RenderError", fmt.Sprintf("error in opening rendered tile: %v", err), "")
		return
	}
	defer fileHandle.Close()

	w.Header().Set("Content-Type", "image/png")
	bytesSent, err := io.Copy(w, fileHandle)
	if err != nil {
		Error.Printf("error in writing rendered tile: %v\n", err)
	}
	metricsCollector.Info.Render.BytesSent = bytesSent
}

func (s *wmsService) serveGetFeatureInfo(params utils.WMSParams, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	resp := &featureInfoResponse{
		Type:         "FeatureCollection",
		FeatureCount: 0,
		Features:     []geo.Feature{},
		Service:      "WMS",
		Request:      "GetFeatureInfo",
		QueryLayers:  params.QueryLayers,
	}
	if params.Version != nil {
		resp.Version = *params.Version
	}
	resp.InfoFormat = "application/json"
	if params.InfoFormat != nil {
		resp.InfoFormat = *params.InfoFormat
	}

	if x, y, err := utils.GetCoordinates(params); err == nil {
		resp.Location = pointFeature(x, y)
	} else if *verbose {
		Info.Printf("GetFeatureInfo without resolvable location: %v\n", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		Error.Printf("error in writing feature info: %v\n", err)
	}
}
