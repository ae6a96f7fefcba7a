package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"regexp"
	"strings"
	"text/template"
)

// WMSParams contains the serialised version
// of the parameters contained in a WMS request.
type WMSParams struct {
	Service     *string   `json:"service,omitempty"`
	Request     *string   `json:"request,omitempty"`
	CRS         *string   `json:"crs,omitempty"`
	BBox        []float64 `json:"bbox,omitempty"`
	Format      *string   `json:"format,omitempty"`
	X           *int      `json:"x,omitempty"`
	Y           *int      `json:"y,omitempty"`
	Height      *int      `json:"height,omitempty"`
	Width       *int      `json:"width,omitempty"`
	Layers      []string  `json:"layers,omitempty"`
	Version     *string   `json:"version,omitempty"`
	QueryLayers []string  `json:"query_layers,omitempty"`
	InfoFormat  *string   `json:"info_format,omitempty"`
}

// WMSRegexpMap maps WMS request parameters to
// regular expressions for doing validation
// when parsing.
// --- These regexp do not avoid every case of
// --- invalid code but filter most of the malformed
// --- cases. Error free JSON deserialisation into types
// --- also validates correct values.
var WMSRegexpMap = map[string]string{"service": `^(?i)WMS$`,
	"request": `^[A-Za-z]+$`,
	"crs":     `^(?i)(?:[A-Z]+):(?:[0-9]+)$`,
	"bbox":    `^[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?(,[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?){3}$`,
	"x":       `^[0-9]+$`,
	"y":       `^[0-9]+$`,
	"width":   `^[0-9]+$`,
	"height":  `^[0-9]+$`,
	"format":  `^[A-Za-z0-9/\-\+\._]+$`}

func CompileWMSRegexMap() map[string]*regexp.Regexp {
	REMap := make(map[string]*regexp.Regexp)
	for key, re := range WMSRegexpMap {
		REMap[key] = regexp.MustCompile(re)
	}

	return REMap
}

func CheckWMSVersion(version string) bool {
	return version == "1.3.0" || version == "1.1.1"
}

// WMSParamsChecker checks and marshals the content
// of the parameters of a WMS request into a
// WMSParams struct.
func WMSParamsChecker(params map[string][]string, compREMap map[string]*regexp.Regexp) (WMSParams, error) {

	jsonFields := []string{}

	if service, serviceOK := params["service"]; serviceOK {
		if compREMap["service"].MatchString(service[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"service":"%s"`, service[0]))
		}
	}

	if version, versionOK := params["version"]; versionOK {
		jsonFields = append(jsonFields, fmt.Sprintf(`"version":"%s"`, version[0]))
	}

	if request, requestOK := params["request"]; requestOK {
		if compREMap["request"].MatchString(request[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"request":"%s"`, request[0]))
		}
	}

	// WMS specifies that coordinate reference systems can be designed by either: ["srs", "crs"]
	if value, srsOK := params["srs"]; srsOK {
		params["crs"] = value
		delete(params, "srs")
	}

	if crs, crsOK := params["crs"]; crsOK {
		if compREMap["crs"].MatchString(crs[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"crs":"%s"`, crs[0]))
		}
	}

	if bbox, bboxOK := params["bbox"]; bboxOK {
		if compREMap["bbox"].MatchString(bbox[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"bbox":[%s]`, bbox[0]))
		}
	}

	if i, iOK := params["i"]; iOK {
		params["x"] = i
	}

	if x, xOK := params["x"]; xOK {
		if compREMap["x"].MatchString(x[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"x":%s`, x[0]))
		}
	}

	if j, jOK := params["j"]; jOK {
		params["y"] = j
	}

	if y, yOK := params["y"]; yOK {
		if compREMap["y"].MatchString(y[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"y":%s`, y[0]))
		}
	}

	if width, widthOK := params["width"]; widthOK {
		if compREMap["width"].MatchString(width[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"width":%s`, width[0]))
		}
	}

	if height, heightOK := params["height"]; heightOK {
		if compREMap["height"].MatchString(height[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"height":%s`, height[0]))
		}
	}

	if format, formatOK := params["format"]; formatOK {
		if compREMap["format"].MatchString(format[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"format":"%s"`, format[0]))
		}
	}

	var layers []string
	if _layers, layersOK := params["layers"]; layersOK {
		layers = _layers
	} else {
		if _layer, layerOK := params["layer"]; layerOK {
			layers = _layer
		}
	}
	if len(layers) > 0 {
		if !strings.Contains(layers[0], "\"") {
			jsonFields = append(jsonFields, fmt.Sprintf(`"layers":["%s"]`, strings.Replace(layers[0], ",", "\",\"", -1)))
		}
	}

	if queryLayers, qlOK := params["query_layers"]; qlOK {
		if !strings.Contains(queryLayers[0], "\"") {
			jsonFields = append(jsonFields, fmt.Sprintf(`"query_layers":["%s"]`, strings.Replace(queryLayers[0], ",", "\",\"", -1)))
		}
	}

	if infoFormat, ifOK := params["info_format"]; ifOK {
		if compREMap["format"].MatchString(infoFormat[0]) {
			jsonFields = append(jsonFields, fmt.Sprintf(`"info_format":"%s"`, infoFormat[0]))
		}
	}

	var wmsParams WMSParams
	jsonParams := fmt.Sprintf("{%s}", strings.Join(jsonFields, ","))
	err := json.Unmarshal([]byte(jsonParams), &wmsParams)
	return wmsParams, err
}

// GetCoordinates returns the x and y
// coordinates in the original projection
// from the tile relative WMS parameters.
func GetCoordinates(params WMSParams) (float64, float64, error) {
	if len(params.BBox) != 4 {
		return 0, 0, fmt.Errorf("No BBox parameter has been specified")
	}
	if params.Width == nil || params.Height == nil {
		return 0, 0, fmt.Errorf("Width and Height have to be bigger than 0")
	}
	if params.X == nil || params.Y == nil {
		return 0, 0, fmt.Errorf("No x and y parameters have been specified")
	}

	return params.BBox[0] + (params.BBox[2]-params.BBox[0])*float64(*params.X)/float64(*params.Width), params.BBox[3] + (params.BBox[1]-params.BBox[3])*float64(*params.Y)/float64(*params.Height), nil
}

func ExecuteWriteTemplateFile(w io.Writer, data interface{}, filePath string) error {
	// General template compilation, execution and writting in to
	// a stream.
	tplStr, err := ioutil.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("Error trying to read %s file: %v", filePath, err)
	}
	tpl, err := template.New("template").Parse(string(tplStr))
	if err != nil {
		return fmt.Errorf("Error trying to parse template document: %v", err)
	}
	err = tpl.Execute(w, data)
	if err != nil {
		return fmt.Errorf("Error executing template: %v\n", err)
	}

	return nil
}
