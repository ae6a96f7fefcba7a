package gdalraster

// #include "gdal.h"
// #cgo pkg-config: gdal
import "C"

import (
	"os"
)

// InitGdal registers the GDAL drivers and sets the environment
// defaults the server relies on. Called once from main before any
// dataset is opened.
func InitGdal() {
	setDefaultEnv("GDAL_PAM_ENABLED", "NO")
	setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
	setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "10")

	C.GDALAllRegister()
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}
