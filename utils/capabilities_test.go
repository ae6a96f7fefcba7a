package utils

import (
	"strings"
	"testing"
)

func testCapabilitiesData() *CapabilitiesData {
	conf := &Config{}
	conf.ServiceConfig.Title = "DSM Test Service"
	conf.ServiceConfig.OWSHostname = "http://maps.example.com"
	conf.Layer.Name = "dsm"
	conf.Layer.Title = "Digital Surface Model"
	conf.Layer.WmsMaxWidth = 2048
	conf.Layer.WmsMaxHeight = 2048

	return &CapabilitiesData{
		Conf:    conf,
		CRS:     "EPSG:28356",
		BBox:    [4]float64{300000, 6198976, 301024, 6200000},
		GeoBBox: [4]float64{150.87, -34.35, 150.88, -34.34},
	}
}

func TestGenerateCapabilities(t *testing.T) {
	oldDataDir := DataDir
	DataDir = "../data"
	defer func() { DataDir = oldDataDir }()

	doc, err := GenerateCapabilities(testCapabilitiesData())
	if err != nil {
		t.Errorf("failed to generate capabilities: %v", err)
		return
	}

	capabilities := string(doc)
	for _, fragment := range []string{
		"<Name>WMS</Name>",
		"<Title>DSM Test Service</Title>",
		`xlink:href="http://maps.example.com/wms"`,
		"<CRS>EPSG:28356</CRS>",
		`<BoundingBox CRS="EPSG:28356" minx="300000.000000" miny="6198976.000000" maxx="301024.000000" maxy="6200000.000000"/>`,
		"<Name>dsm</Name>",
		"<westBoundLongitude>150.870000</westBoundLongitude>",
	} {
		if !strings.Contains(capabilities, fragment) {
			t.Errorf("capabilities document does not contain %s", fragment)
		}
	}
}

func TestGenerateCapabilitiesNoHostname(t *testing.T) {
	oldDataDir := DataDir
	DataDir = "../data"
	defer func() { DataDir = oldDataDir }()

	data := testCapabilitiesData()
	data.Conf.ServiceConfig.OWSHostname = ""
	if _, err := GenerateCapabilities(data); err == nil {
		t.Errorf("expecting an error with no resolved hostname")
	}
}

func TestCapabilitiesErrorDocument(t *testing.T) {
	oldDataDir := DataDir
	DataDir = "../data"
	defer func() { DataDir = oldDataDir }()

	doc := string(CapabilitiesErrorDocument())
	if !strings.Contains(doc, "ServiceExceptionReport") {
		t.Errorf("error document is not a service exception report")
	}

	// missing template degrades to the built-in document
	DataDir = "/nonexistent"
	doc = string(CapabilitiesErrorDocument())
	if !strings.Contains(doc, "ServiceExceptionReport") {
		t.Errorf("fallback error document is not a service exception report")
	}
}
