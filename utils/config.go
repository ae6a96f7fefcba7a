package utils

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

var DataDir = "."

// string used to format Go ISO times
const ISOFormat = "2006-01-02T15:04:05.000Z"

const DefaultWmsMaxWidth = 2048
const DefaultWmsMaxHeight = 2048
const DefaultMaxConnections = 512

type ServiceConfig struct {
	Title          string `json:"title" yaml:"title"`
	Abstract       string `json:"abstract" yaml:"abstract"`
	Version        string `json:"version" yaml:"version"`
	OWSHostname    string `json:"ows_hostname" yaml:"ows_hostname"`
	RasterPath     string `json:"raster_path" yaml:"raster_path"`
	TempDir        string `json:"temp_dir" yaml:"temp_dir"`
	MaxConnections int    `json:"max_connections" yaml:"max_connections"`
}

// Layer contains the details the single published layer needs to be
// rendered and announced in the capabilities document.
type Layer struct {
	Name         string `json:"name" yaml:"name"`
	Title        string `json:"title" yaml:"title"`
	Abstract     string `json:"abstract" yaml:"abstract"`
	WmsMaxWidth  int    `json:"wms_max_width" yaml:"wms_max_width"`
	WmsMaxHeight int    `json:"wms_max_height" yaml:"wms_max_height"`
}

// Config is the struct representing the configuration of the WMS
// server. It describes the service endpoint and the one raster layer
// this server publishes.
type Config struct {
	ServiceConfig ServiceConfig `json:"service_config" yaml:"service_config"`
	Layer         Layer         `json:"layer" yaml:"layer"`
}

// LoadConfigFile unmarshals the config document returning an instance
// of a Config variable containing all the values. Both JSON and YAML
// documents are accepted, selected on the file extension.
func (config *Config) LoadConfigFile(configFile string) error {
	*config = Config{}
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(cfg, config)
	default:
		err = json.Unmarshal(cfg, config)
	}
	if err != nil {
		return fmt.Errorf("Error at parsing config document: %s. Error: %v", configFile, err)
	}

	if path, ok := os.LookupEnv("WMS_RASTER_PATH"); ok {
		config.ServiceConfig.RasterPath = path
	}
	if version, ok := os.LookupEnv("VERSION"); ok {
		config.ServiceConfig.Version = version
	}

	if len(config.ServiceConfig.RasterPath) == 0 {
		return fmt.Errorf("Config %s does not specify a raster path", configFile)
	}
	if len(config.ServiceConfig.Version) == 0 {
		config.ServiceConfig.Version = "1.0.0"
	}
	if len(config.ServiceConfig.TempDir) == 0 {
		config.ServiceConfig.TempDir = os.TempDir()
	}
	if config.ServiceConfig.MaxConnections <= 0 {
		config.ServiceConfig.MaxConnections = DefaultMaxConnections
	}
	if len(config.Layer.Name) == 0 {
		config.Layer.Name = "dsm"
	}
	if len(config.Layer.Title) == 0 {
		config.Layer.Title = config.ServiceConfig.Title
	}
	if config.Layer.WmsMaxWidth <= 0 {
		config.Layer.WmsMaxWidth = DefaultWmsMaxWidth
	}
	if config.Layer.WmsMaxHeight <= 0 {
		config.Layer.WmsMaxHeight = DefaultWmsMaxHeight
	}

	return nil
}

// Copy returns a request-scoped copy of the configuration with the
// published hostname resolved against the incoming request when the
// config does not pin one.
func (config *Config) Copy(r *http.Request) *Config {
	newConf := *config
	if len(strings.TrimSpace(newConf.ServiceConfig.OWSHostname)) == 0 {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		newConf.ServiceConfig.OWSHostname = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return &newConf
}
