// Package stac decodes the Sentinel-2 STAC item notifications the service is
// triggered with and encodes the result documents it persists.
package stac

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// CloudMaskAsset is the asset key of the scene classification layer.
const CloudMaskAsset = "SCL"

// Properties are the item properties the service reads.
type Properties struct {
	ProductID    string  `json:"sentinel:product_id"`
	Platform     string  `json:"platform"`
	UTMZone      int     `json:"sentinel:utm_zone"`
	LatitudeBand string  `json:"sentinel:latitude_band"`
	GridSquare   string  `json:"sentinel:grid_square"`
	CloudCover   float64 `json:"eo:cloud_cover"`
	Datetime     string  `json:"datetime,omitempty"`
}

// Asset is a link to one file of the item.
type Asset struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Item is a STAC item. Fields the service does not model are kept verbatim
// so the result document can reproduce the input.
type Item struct {
	ID         string
	Properties Properties
	Geometry   json.RawMessage
	Assets     map[string]Asset

	raw map[string]json.RawMessage
}

// ParseItem decodes a STAC item.
func ParseItem(data []byte) (*Item, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "stac: decode item")
	}

	var typed struct {
		ID         string           `json:"id"`
		Properties Properties       `json:"properties"`
		Geometry   json.RawMessage  `json:"geometry"`
		Assets     map[string]Asset `json:"assets"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, eris.Wrap(err, "stac: decode item fields")
	}
	if typed.ID == "" {
		return nil, eris.New("stac: item has no id")
	}
	if len(typed.Geometry) == 0 || string(typed.Geometry) == "null" {
		return nil, eris.Errorf("stac: item %s has no geometry", typed.ID)
	}

	return &Item{
		ID:         typed.ID,
		Properties: typed.Properties,
		Geometry:   typed.Geometry,
		Assets:     typed.Assets,
		raw:        raw,
	}, nil
}

// GridName is the MGRS tile name, e.g. "30TVK". Items without the
// sentinel grid properties fall back to the five characters after the
// mission prefix of the id.
func (it *Item) GridName() string {
	p := it.Properties
	if p.UTMZone > 0 && p.LatitudeBand != "" && p.GridSquare != "" {
		return fmt.Sprintf("%d%s%s", p.UTMZone, p.LatitudeBand, p.GridSquare)
	}
	if len(it.ID) >= 9 {
		return it.ID[4:9]
	}
	return ""
}

// ProductDate is the acquisition date embedded in the item id (YYYYMMDD).
func (it *Item) ProductDate() string {
	if len(it.ID) < 18 {
		return ""
	}
	return it.ID[10:18]
}

// AssetHref returns the href of the named asset.
func (it *Item) AssetHref(key string) (string, error) {
	a, ok := it.Assets[key]
	if !ok || a.Href == "" {
		return "", eris.Errorf("stac: item %s has no %s asset", it.ID, key)
	}
	return a.Href, nil
}

// MarshalJSON reproduces the decoded item.
func (it *Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(it.fields())
}

func (it *Item) fields() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(it.raw)+1)
	for k, v := range it.raw {
		out[k] = v
	}
	return out
}
