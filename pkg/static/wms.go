package static

import (
	"fmt"
	"net/url"
)

// WMSParams describes a GetMap request against the radar site's map
// server, which renders the high-resolution MAXZ reflectivity composite.
type WMSParams struct {
	Layers      string // e.g. dwr_kochi:maxz_image
	Format      string // e.g. image/png
	SRS         string // e.g. EPSG:4326
	BBox        string // minx,miny,maxx,maxy in SRS units
	Version     string
	Width       int
	Height      int
	Transparent bool
}

// DefaultWMSParams returns the GetMap parameters for the Kerala MAXZ
// layer: 1024x1024 transparent PNG over 74-78E, 8-12N.
func DefaultWMSParams(layers string) WMSParams {
	return WMSParams{
		Layers:      layers,
		Format:      "image/png",
		SRS:         "EPSG:4326",
		BBox:        "74.0,8.0,78.0,12.0",
		Version:     "1.1.1",
		Width:       1024,
		Height:      1024,
		Transparent: true,
	}
}

// WMSURL builds the GetMap URL for the given endpoint and parameters.
func WMSURL(endpoint string, p WMSParams) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid WMS endpoint: %w", err)
	}

	q := u.Query()
	q.Set("service", "WMS")
	q.Set("request", "GetMap")
	q.Set("layers", p.Layers)
	q.Set("styles", "")
	q.Set("format", p.Format)
	q.Set("transparent", fmt.Sprintf("%t", p.Transparent))
	q.Set("version", p.Version)
	q.Set("width", fmt.Sprintf("%d", p.Width))
	q.Set("height", fmt.Sprintf("%d", p.Height))
	q.Set("srs", p.SRS)
	q.Set("bbox", p.BBox)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
