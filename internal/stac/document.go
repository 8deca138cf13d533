package stac

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urbancover/internal/geometry"
)

// LandUse is the block the service adds to an item.
type LandUse struct {
	UrbanPixels      int               `json:"urban_pixels"`
	ValidUrbanPixels int               `json:"valid_urban_pixels"`
	UrbanCover       float64           `json:"urban_cover"`
	AOIExtent        geometry.Envelope `json:"aoi_extent"`
}

// Document encodes the item with its land_use block.
func Document(it *Item, lu LandUse) ([]byte, error) {
	fields := it.fields()
	block, err := json.Marshal(lu)
	if err != nil {
		return nil, eris.Wrap(err, "stac: encode land_use")
	}
	fields["land_use"] = block

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, eris.Wrapf(err, "stac: encode document %s", it.ID)
	}
	return data, nil
}

// ParseLandUse reads the land_use block of a persisted document. A missing
// block or extent is an error: the document cannot be trusted for
// reconciliation.
func ParseLandUse(data []byte) (LandUse, error) {
	var doc struct {
		LandUse *struct {
			UrbanPixels      int                `json:"urban_pixels"`
			ValidUrbanPixels int                `json:"valid_urban_pixels"`
			UrbanCover       float64            `json:"urban_cover"`
			AOIExtent        *geometry.Envelope `json:"aoi_extent"`
		} `json:"land_use"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return LandUse{}, eris.Wrap(err, "stac: decode document")
	}
	if doc.LandUse == nil {
		return LandUse{}, eris.New("stac: document has no land_use")
	}
	if doc.LandUse.AOIExtent == nil {
		return LandUse{}, eris.New("stac: document has no land_use.aoi_extent")
	}
	return LandUse{
		UrbanPixels:      doc.LandUse.UrbanPixels,
		ValidUrbanPixels: doc.LandUse.ValidUrbanPixels,
		UrbanCover:       doc.LandUse.UrbanCover,
		AOIExtent:        *doc.LandUse.AOIExtent,
	}, nil
}
