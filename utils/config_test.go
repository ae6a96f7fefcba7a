package utils

import (
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"service_config": {
			"title": "DSM Test Service",
			"raster_path": "/data/dsm.tif",
			"max_connections": 64
		},
		"layer": {
			"name": "elevation",
			"wms_max_width": 1024,
			"wms_max_height": 1024
		}
	}`)

	config := &Config{}
	if err := config.LoadConfigFile(path); err != nil {
		t.Errorf("failed to load config: %v", err)
		return
	}

	if config.ServiceConfig.Title != "DSM Test Service" {
		t.Errorf("failed to parse title: %v", config.ServiceConfig.Title)
	}
	if config.ServiceConfig.RasterPath != "/data/dsm.tif" {
		t.Errorf("failed to parse raster path: %v", config.ServiceConfig.RasterPath)
	}
	if config.ServiceConfig.MaxConnections != 64 {
		t.Errorf("failed to parse max connections: %v", config.ServiceConfig.MaxConnections)
	}
	if config.Layer.Name != "elevation" || config.Layer.WmsMaxWidth != 1024 {
		t.Errorf("failed to parse layer: %+v", config.Layer)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
service_config:
  title: DSM Test Service
  raster_path: /data/dsm.tif
layer:
  name: elevation
`)

	config := &Config{}
	if err := config.LoadConfigFile(path); err != nil {
		t.Errorf("failed to load config: %v", err)
		return
	}

	if config.ServiceConfig.Title != "DSM Test Service" {
		t.Errorf("failed to parse title: %v", config.ServiceConfig.Title)
	}
	if config.Layer.Name != "elevation" {
		t.Errorf("failed to parse layer name: %v", config.Layer.Name)
	}
}

func TestLoadConfigFileDefaults(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{"service_config": {"raster_path": "/data/dsm.tif"}}`)

	config := &Config{}
	if err := config.LoadConfigFile(path); err != nil {
		t.Errorf("failed to load config: %v", err)
		return
	}

	if config.ServiceConfig.Version != "1.0.0" {
		t.Errorf("unexpected default version: %v", config.ServiceConfig.Version)
	}
	if config.ServiceConfig.MaxConnections != DefaultMaxConnections {
		t.Errorf("unexpected default max connections: %v", config.ServiceConfig.MaxConnections)
	}
	if config.Layer.Name != "dsm" {
		t.Errorf("unexpected default layer name: %v", config.Layer.Name)
	}
	if config.Layer.WmsMaxWidth != DefaultWmsMaxWidth || config.Layer.WmsMaxHeight != DefaultWmsMaxHeight {
		t.Errorf("unexpected default max sizes: %dx%d", config.Layer.WmsMaxWidth, config.Layer.WmsMaxHeight)
	}
}

func TestLoadConfigFileNoRasterPath(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{"service_config": {"title": "no raster"}}`)

	config := &Config{}
	if err := config.LoadConfigFile(path); err == nil {
		t.Errorf("expecting an error for a config without a raster path")
	}
}

func TestLoadConfigFileEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{"service_config": {"raster_path": "/data/dsm.tif", "version": "0.1.0"}}`)

	os.Setenv("WMS_RASTER_PATH", "/override/dsm.tif")
	os.Setenv("VERSION", "2.0.0")
	defer os.Unsetenv("WMS_RASTER_PATH")
	defer os.Unsetenv("VERSION")

	config := &Config{}
	if err := config.LoadConfigFile(path); err != nil {
		t.Errorf("failed to load config: %v", err)
		return
	}

	if config.ServiceConfig.RasterPath != "/override/dsm.tif" {
		t.Errorf("raster path env override was not applied: %v", config.ServiceConfig.RasterPath)
	}
	if config.ServiceConfig.Version != "2.0.0" {
		t.Errorf("version env override was not applied: %v", config.ServiceConfig.Version)
	}
}

func TestConfigCopyResolvesHostname(t *testing.T) {
	config := &Config{}
	r, _ := http.NewRequest("GET", "/wms", nil)
	r.Host = "maps.example.com"

	copied := config.Copy(r)
	if copied.ServiceConfig.OWSHostname != "http://maps.example.com" {
		t.Errorf("unexpected resolved hostname: %v", copied.ServiceConfig.OWSHostname)
	}
	if config.ServiceConfig.OWSHostname != "" {
		t.Errorf("copy modified the source config")
	}

	config.ServiceConfig.OWSHostname = "https://pinned.example.com"
	copied = config.Copy(r)
	if copied.ServiceConfig.OWSHostname != "https://pinned.example.com" {
		t.Errorf("pinned hostname was not preserved: %v", copied.ServiceConfig.OWSHostname)
	}
}
