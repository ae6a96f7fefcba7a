package metrics

import (
	"bytes"
	"encoding/json"
	"log"
	"net"
	"net/url"
	"time"
)

type URLInfo struct {
	RawURL string            `json:"raw_url"`
	Host   string            `json:"host"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query"`
}

// RenderInfo records the work done by the map rendering chain for one
// request.
type RenderInfo struct {
	Duration  time.Duration `json:"duration"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	BytesSent int64         `json:"bytes_sent"`
}

type MetricsInfo struct {
	ReqTime     string        `json:"req_time"`
	ReqDuration time.Duration `json:"req_duration"`
	URL         URLInfo       `json:"url"`
	RemoteAddr  string        `json:"remote_addr"`
	RemoteHost  string        `json:"remote_host"`
	RemotePort  string        `json:"remote_port"`
	HTTPStatus  int           `json:"http_status"`
	Render      *RenderInfo   `json:"render"`
}

// MetricsCollector is constructed per request and flushed once the
// handler returns. It wraps every handler call so request and timing
// logging composes around the dispatcher instead of living inside it.
type MetricsCollector struct {
	Info   *MetricsInfo
	logger Logger
}

func NewMetricsCollector(logger Logger) *MetricsCollector {
	return &MetricsCollector{
		Info: &MetricsInfo{
			Render: &RenderInfo{},
		},
		logger: logger,
	}
}

func (m *MetricsCollector) Log() {
	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *MetricsInfo) ToJSON() (string, error) {
	i.normaliseNetworkAddr(i.RemoteAddr)
	i.normaliseURL(&i.URL)

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err == nil {
		return buf.String(), nil
	}
	return "", err
}

func (i *MetricsInfo) normaliseNetworkAddr(addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		i.RemoteHost = host
		i.RemotePort = port
	} else {
		i.RemoteHost = addr
	}
}

func (i *MetricsInfo) normaliseURL(u *URLInfo) {
	if len(u.RawURL) == 0 {
		return
	}

	parsed, err := url.Parse(u.RawURL)
	if err != nil {
		log.Printf("metrics: normaliseURL() error: %v", err)
		return
	}

	u.Host = parsed.Host
	u.Path = parsed.Path

	query := make(map[string]string)
	for key, vals := range parsed.Query() {
		if len(vals) > 0 {
			query[key] = vals[0]
		}
	}
	if len(query) > 0 {
		u.Query = query
	}
}
