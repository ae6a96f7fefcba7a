package main

/* dsmwms is a web server implementing the WMS protocol to serve a
   single digital surface model raster. The raster is validated and
   scanned for its value range once at startup and every GetMap
   request clips, normalizes and encodes a tile out of it on the fly.
   Configuration of the server is specified in the config.json file
   where the service identity and the published layer are defined. */

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/geo-services/dsmwms/gdalraster"
	"github.com/geo-services/dsmwms/metrics"
	"github.com/geo-services/dsmwms/utils"

	_ "net/http/pprof"

	"github.com/edisonguo/jet"
	reuseport "github.com/kavu/go_reuseport"
	"golang.org/x/net/netutil"
)

var (
	port          = flag.Int("p", 8080, "Server listening port.")
	serverConfig  = flag.String("conf", "config.json", "Server config file.")
	serverDataDir = flag.String("data_dir", utils.DataDir, "Server data directory.")
	serverLogDir  = flag.String("log_dir", "", "Server log directory, '-' for stdout.")
	verbose       = flag.Bool("v", false, "Verbose mode for more server outputs.")
)

var reWMSMap = utils.CompileWMSRegexMap()

var (
	Error = log.New(os.Stderr, "WMS: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info  = log.New(os.Stdout, "WMS: ", log.Ldate|log.Ltime|log.Lshortfile)
)

var metricsLogger metrics.Logger

// wmsService holds everything computed during the startup barrier.
// The raster descriptor and statistics are immutable after
// newService returns, so request handlers read them without locks.
type wmsService struct {
	conf      *utils.Config
	info      *gdalraster.Info
	stats     *utils.RasterStats
	startTime time.Time

	capsOnce sync.Once
	caps     []byte
}

// newService validates the published raster and scans its value
// range. The listener must not be opened before this returns: a
// service that cannot describe its raster has nothing to serve.
func newService(conf *utils.Config) (*wmsService, error) {
	info, err := gdalraster.Describe(conf.ServiceConfig.RasterPath)
	if err != nil {
		return nil, err
	}

	stats, err := gdalraster.Scan(info)
	if err != nil {
		return nil, err
	}

	Info.Printf("raster %s: %dx%d, %dx%d blocks, %s, range [%f, %f]",
		info.Path, info.Width, info.Height, info.BlockWidth, info.BlockHeight,
		info.SRS, stats.Min, stats.Max)

	return &wmsService{
		conf:      conf,
		info:      info,
		stats:     stats,
		startTime: time.Now().UTC(),
	}, nil
}

// wmsHandler handles every request received on /wms
func (s *wmsService) wmsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	if *verbose {
		Info.Printf("%s\n", r.URL.String())
	}

	metricsCollector := metrics.NewMetricsCollector(metricsLogger)
	defer metricsCollector.Log()

	t0 := time.Now()
	metricsCollector.Info.ReqTime = t0.Format(utils.ISOFormat)
	defer func() { metricsCollector.Info.ReqDuration = time.Since(t0) }()

	metricsCollector.Info.URL.RawURL = r.URL.String()
	metricsCollector.Info.RemoteAddr = utils.ParseRemoteAddr(r)
	metricsCollector.Info.HTTPStatus = 200

	query, err := utils.ParseQuery(r.URL.RawQuery)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidQuery", fmt.Sprintf("failed to parse query: %v", err), "")
		return
	}

	if service, hasService := query["service"]; hasService && len(service) > 0 && service[0] != "" {
		if !reWMSMap["service"].MatchString(service[0]) {
			metricsCollector.Info.HTTPStatus = 400
			writeJSONError(w, 400, "InvalidService", fmt.Sprintf("service value %q not supported, this server only speaks WMS", service[0]), "")
			return
		}
	}

	params, err := utils.WMSParamsChecker(query, reWMSMap)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		writeJSONError(w, 400, "InvalidParameters", fmt.Sprintf("wrong WMS parameters on URL: %v", err), "")
		return
	}

	s.serveWMS(params, r, w, metricsCollector)
}

func (s *wmsService) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	view := jet.NewSet(jet.SafeWriter(func(w io.Writer, b []byte) {
		w.Write(b)
	}), utils.DataDir+"/templates", "/")

	template, err := view.GetTemplate("index.jet")
	if err != nil {
		Error.Printf("landing page template: %v\n", err)
		http.Error(w, "landing page unavailable", 500)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	vars := make(jet.VarMap)
	if err = template.Execute(w, vars, s.conf.Copy(r)); err != nil {
		Error.Printf("landing page render: %v\n", err)
	}
}

func newMetricsLogger(logDir string) metrics.Logger {
	if len(logDir) == 0 {
		return nil
	}
	if logDir == "-" {
		return metrics.NewStdoutLogger()
	}

	maxLogFileSize := int64(0)
	if val, ok := os.LookupEnv("WMS_MAX_LOG_FILE_SIZE"); ok {
		valInt, e := strconv.ParseInt(val, 10, 64)
		if e == nil {
			maxLogFileSize = valInt
		} else {
			Error.Printf("invalid WMS_MAX_LOG_FILE_SIZE: %v", e)
		}
	}

	maxLogFiles := -1
	if val, ok := os.LookupEnv("WMS_MAX_LOG_FILES"); ok {
		valInt, e := strconv.ParseInt(val, 10, 32)
		if e == nil {
			maxLogFiles = int(valInt)
		} else {
			Error.Printf("invalid WMS_MAX_LOG_FILES: %v", e)
		}
	}

	return metrics.NewFileLogger(logDir, maxLogFileSize, maxLogFiles, *verbose)
}

func main() {
	flag.Parse()

	utils.DataDir = *serverDataDir

	filePaths := []string{
		utils.DataDir + "/templates/index.jet",
		utils.DataDir + "/templates/WMS_GetCapabilities.tpl",
		utils.DataDir + "/templates/WMS_ServiceException.tpl"}

	for _, filePath := range filePaths {
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			Error.Fatal(err)
		}
	}

	conf := &utils.Config{}
	if err := conf.LoadConfigFile(*serverConfig); err != nil {
		Error.Fatalf("Error in loading config file: %v\n", err)
	}

	metricsLogger = newMetricsLogger(*serverLogDir)

	gdalraster.InitGdal()

	service, err := newService(conf)
	if err != nil {
		Error.Fatalf("Error in opening raster %s: %v\n", conf.ServiceConfig.RasterPath, err)
	}

	http.HandleFunc("/", service.indexHandler)
	http.HandleFunc("/wms", service.wmsHandler)
	http.HandleFunc("/wms/", service.wmsHandler)
	http.HandleFunc("/api/status", service.statusHandler)

	listener, err := reuseport.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", *port))
	if err != nil {
		Error.Fatalf("Error in opening listener: %v\n", err)
	}
	if conf.ServiceConfig.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, conf.ServiceConfig.MaxConnections)
	}

	Info.Printf("%s is ready on port %d", conf.ServiceConfig.Title, *port)
	log.Fatal(http.Serve(listener, nil))
}
