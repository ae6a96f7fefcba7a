package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/geo-services/dsmwms/gdalraster"
	"github.com/geo-services/dsmwms/utils"
)

func testService(rasterPath string) *wmsService {
	conf := &utils.Config{}
	conf.ServiceConfig.Title = "DSM Test Service"
	conf.ServiceConfig.Version = "1.0.0"
	conf.ServiceConfig.RasterPath = rasterPath
	conf.Layer.Name = "dsm"
	conf.Layer.Title = "Digital Surface Model"
	conf.Layer.WmsMaxWidth = 512
	conf.Layer.WmsMaxHeight = 512

	nodata := -9999.0
	info := &gdalraster.Info{
		Path:         rasterPath,
		SRS:          "EPSG:28356",
		GeoTransform: [6]float64{300000, 1, 0, 6200000, 0, -1},
		Width:        64,
		Height:       64,
		BlockWidth:   32,
		BlockHeight:  32,
		Overviews:    1,
		NoData:       &nodata,
	}

	return &wmsService{
		conf:      conf,
		info:      info,
		stats:     &utils.RasterStats{Min: 0, Max: 100, NoData: &nodata},
		startTime: time.Now().UTC(),
	}
}

func doWMS(s *wmsService, url string) *httptest.ResponseRecorder {
	r, _ := http.NewRequest("GET", url, nil)
	r.Host = "maps.example.com"
	w := httptest.NewRecorder()
	s.wmsHandler(w, r)
	return w
}

func TestServeWMSInvalidRequests(t *testing.T) {
	utils.DataDir = "data"
	s := testService("/nonexistent/dsm.tif")

	cases := []struct {
		url      string
		status   int
		fragment string
	}{
		{"/wms?service=WMS&request=bogus", 400, "bogus"},
		{"/wms?service=WMS", 400, "request value"},
		{"/wms?service=WCS&request=GetCapabilities", 400, "WCS"},
		{"/wms?service=WMS&version=1.3.0&request=GetMap&width=4&height=4", 400, "bbox"},
		{"/wms?service=WMS&version=1.3.0&request=GetMap&bbox=300000,6199936,300064,6200000", 400, "width"},
		{"/wms?service=WMS&version=2.0.0&request=GetMap&bbox=300000,6199936,300064,6200000&width=4&height=4", 400, "version"},
		{"/wms?service=WMS&version=1.3.0&request=GetMap&bbox=300000,6199936,300064,6200000&width=4096&height=4", 400, "too large"},
		{"/wms?service=WMS&version=1.3.0&request=GetMap&crs=EPSG:4326&bbox=300000,6199936,300064,6200000&width=4&height=4", 400, "EPSG:28356"},
		{"/wms?service=WMS&version=2.0.0&request=GetCapabilities", 400, "version"},
	}

	for _, c := range cases {
		w := doWMS(s, c.url)
		if w.Code != c.status {
			t.Errorf("%s: expecting status %d, actual %d", c.url, c.status, w.Code)
			continue
		}
		if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
			t.Errorf("%s: expecting a JSON error body, actual %s", c.url, contentType)
		}
		if !strings.Contains(w.Body.String(), c.fragment) {
			t.Errorf("%s: response %s does not contain %s", c.url, w.Body.String(), c.fragment)
		}
	}
}

func TestServeWMSGetMapMissingRaster(t *testing.T) {
	utils.DataDir = "data"
	s := testService("/nonexistent/dsm.tif")

	w := doWMS(s, "/wms?service=WMS&version=1.3.0&request=GetMap&crs=EPSG:28356&bbox=300000,6199936,300064,6200000&width=4&height=4")
	if w.Code != 404 {
		t.Errorf("expecting status 404 for a missing raster, actual %d", w.Code)
		return
	}
	if !strings.Contains(w.Body.String(), `"path"`) {
		t.Errorf("read error response does not name the raster path: %s", w.Body.String())
	}
}

func TestServeWMSGetFeatureInfo(t *testing.T) {
	utils.DataDir = "data"
	s := testService("/nonexistent/dsm.tif")

	w := doWMS(s, "/wms?service=WMS&version=1.3.0&request=GetFeatureInfo&query_layers=dsm&info_format=application/json&bbox=300000,6199936,300064,6200000&width=64&height=64&i=32&j=32")
	if w.Code != 200 {
		t.Errorf("expecting status 200, actual %d", w.Code)
		return
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Errorf("failed to parse feature info response: %v", err)
		return
	}

	if resp["type"] != "FeatureCollection" || resp["feature_count"] != float64(0) {
		t.Errorf("unexpected feature info response: %v", resp)
	}
	features, ok := resp["features"].([]interface{})
	if !ok || len(features) != 0 {
		t.Errorf("expecting an empty features array: %v", resp["features"])
	}
	if _, hasLocation := resp["location"]; !hasLocation {
		t.Errorf("expecting a location feature: %v", resp)
	}

	// without pixel coordinates the location is omitted
	w = doWMS(s, "/wms?service=WMS&version=1.3.0&request=GetFeatureInfo&query_layers=dsm")
	if w.Code != 200 {
		t.Errorf("expecting status 200 without a resolvable location, actual %d", w.Code)
		return
	}
	resp = nil
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Errorf("failed to parse feature info response: %v", err)
		return
	}
	if _, hasLocation := resp["location"]; hasLocation {
		t.Errorf("location should be omitted without pixel coordinates: %v", resp)
	}
}

func TestServeWMSGetCapabilitiesDegraded(t *testing.T) {
	utils.DataDir = "data"
	// the blank projection makes the geographic extent fail, which
	// must degrade to the exception document rather than an error
	s := testService("/nonexistent/dsm.tif")

	w := doWMS(s, "/wms?service=WMS&request=GetCapabilities")
	if w.Code != 200 {
		t.Errorf("capabilities requests must not fail at the HTTP level, actual %d", w.Code)
		return
	}
	if contentType := w.Header().Get("Content-Type"); contentType != "text/xml" {
		t.Errorf("expecting text/xml, actual %s", contentType)
	}
	if !strings.Contains(w.Body.String(), "ServiceExceptionReport") {
		t.Errorf("expecting the exception document: %s", w.Body.String())
	}
}

// TestServeWMSEndToEnd drives the full chain against a synthetic
// raster: startup scan, capabilities and a decoded GetMap tile.
func TestServeWMSEndToEnd(t *testing.T) {
	utils.DataDir = "data"
	gdalraster.InitGdal()

	rasterPath := filepath.Join(t.TempDir(), "dsm.tif")
	nodata := -9999.0
	samples := make([]float64, 64*64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			samples[y*64+x] = float64(x)
		}
	}
	opts := gdalraster.CreateOptions{
		Width:        64,
		Height:       64,
		BlockSize:    32,
		EPSG:         28356,
		GeoTransform: [6]float64{300000, 1, 0, 6200000, 0, -1},
		NoData:       &nodata,
		Overviews:    []int{2},
	}
	if err := gdalraster.Create(rasterPath, opts, samples); err != nil {
		t.Fatalf("failed to create test raster: %v", err)
	}

	conf := &utils.Config{}
	conf.ServiceConfig.Title = "DSM Test Service"
	conf.ServiceConfig.RasterPath = rasterPath
	conf.ServiceConfig.TempDir = t.TempDir()
	conf.Layer.Name = "dsm"
	conf.Layer.WmsMaxWidth = 512
	conf.Layer.WmsMaxHeight = 512

	s, err := newService(conf)
	if err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	if s.stats.Min != 0 || s.stats.Max != 63 {
		t.Errorf("unexpected startup stats: (%v, %v)", s.stats.Min, s.stats.Max)
	}

	w := doWMS(s, "/wms?service=WMS&version=1.3.0&request=GetCapabilities")
	if w.Code != 200 {
		t.Errorf("capabilities failed with status %d", w.Code)
	}
	capabilities := w.Body.String()
	for _, fragment := range []string{"EPSG:28356", "<Name>dsm</Name>", "http://maps.example.com/wms"} {
		if !strings.Contains(capabilities, fragment) {
			t.Errorf("capabilities document does not contain %s", fragment)
		}
	}

	w = doWMS(s, "/wms?service=WMS&version=1.3.0&request=GetMap&crs=EPSG:28356&bbox=300000,6199936,300064,6200000&width=4&height=4")
	if w.Code != 200 {
		t.Errorf("GetMap failed with status %d: %s", w.Code, w.Body.String())
		return
	}
	if contentType := w.Header().Get("Content-Type"); contentType != "image/png" {
		t.Errorf("expecting image/png, actual %s", contentType)
	}

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Errorf("failed to decode the rendered tile: %v", err)
		return
	}
	if img.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("unexpected tile bounds: %v", img.Bounds())
		return
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		t.Errorf("expecting a non-premultiplied RGBA tile, actual %T", img)
		return
	}
	for y := 0; y < 4; y++ {
		left := nrgba.NRGBAAt(0, y)
		right := nrgba.NRGBAAt(3, y)
		if left.A != 255 || right.A != 255 {
			t.Errorf("row %d: tile should be fully opaque", y)
		}
		if left.R >= right.R {
			t.Errorf("row %d: luminance should increase along the ramp: %d vs %d", y, left.R, right.R)
		}
	}
}
