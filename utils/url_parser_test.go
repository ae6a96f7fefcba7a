package utils

import (
	"net/http"
	"testing"
)

func TestParseQueryLowersKeys(t *testing.T) {
	query, err := ParseQuery("SERVICE=WMS&Request=GetMap&BBOX=1,2,3,4")
	if err != nil {
		t.Errorf("failed to parse query: %v", err)
		return
	}

	if len(query["service"]) != 1 || query["service"][0] != "WMS" {
		t.Errorf("upper-cased key was not lowered: %v", query)
	}
	if len(query["request"]) != 1 || query["request"][0] != "GetMap" {
		t.Errorf("mixed-cased key was not lowered: %v", query)
	}
	if len(query["bbox"]) != 1 || query["bbox"][0] != "1,2,3,4" {
		t.Errorf("failed to parse bbox value: %v", query)
	}
}

func TestParseQueryUnescapes(t *testing.T) {
	query, err := ParseQuery("format=image%2Fpng&title=a%20b")
	if err != nil {
		t.Errorf("failed to parse query: %v", err)
		return
	}
	if query["format"][0] != "image/png" || query["title"][0] != "a b" {
		t.Errorf("failed to unescape values: %v", query)
	}
}

func TestParseRemoteAddr(t *testing.T) {
	r, _ := http.NewRequest("GET", "http://localhost/wms", nil)
	r.RemoteAddr = "10.0.0.1:43210"

	if addr := ParseRemoteAddr(r); addr != "10.0.0.1:43210" {
		t.Errorf("unexpected remote addr: %v", addr)
	}

	r.Header.Set("X-Forwarded-For", "192.168.1.10, 10.0.0.1")
	if addr := ParseRemoteAddr(r); addr != "192.168.1.10" {
		t.Errorf("unexpected forwarded addr: %v", addr)
	}
}
