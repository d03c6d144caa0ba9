package httpapi

import (
	"encoding/json/v2"
	"fmt"
	"net/http"

	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/pdfs"
	"github.com/zeptools/gw-impose/responses"
)

// planRequest gives the trimmed page size in points, or in inches when the points are zero
type planRequest struct {
	WidthPt  float64 `json:"page_width_pt"`
	HeightPt float64 `json:"page_height_pt"`
	WidthIn  float64 `json:"page_width_in"`
	HeightIn float64 `json:"page_height_in"`
}

type planResponse struct {
	Columns     int              `json:"columns"`
	Rows        int              `json:"rows"`
	Sheet       pdfs.PaperSize   `json:"sheet"`
	Orientation pdfs.Orientation `json:"orientation"`
	WasteSqIn   float64          `json:"waste_sq_in"`
	Settings    impose.Settings  `json:"settings"`
}

func (p planRequest) points() (float64, float64) {
	if p.WidthPt > 0 || p.HeightPt > 0 {
		return p.WidthPt, p.HeightPt
	}
	return p.WidthIn * pdfs.PointsPerInch, p.HeightIn * pdfs.PointsPerInch
}

// Plan runs the automatic layout search for a page size against the live catalog
func (a *API) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.UnmarshalRead(http.MaxBytesReader(w, r.Body, 1<<16), &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	pw, ph := req.points()
	if pw <= 0 || ph <= 0 {
		writeError(w, fmt.Errorf("%w: page size must be positive", errBadRequest))
		return
	}
	layout, err := impose.AutoPlan(a.Catalogs.Catalog(), pw, ph)
	if err != nil {
		writeError(w, err)
		return
	}
	responses.EncodeWriteJSON(w, http.StatusOK, planResponse{
		Columns:     layout.Columns,
		Rows:        layout.Rows,
		Sheet:       layout.Sheet,
		Orientation: layout.Orientation,
		WasteSqIn:   layout.Waste / (pdfs.PointsPerInch * pdfs.PointsPerInch),
		Settings:    layout.Settings(),
	})
}

func (a *API) SheetSizes(w http.ResponseWriter, r *http.Request) {
	responses.EncodeWriteJSON(w, http.StatusOK, map[string]any{"sheets": a.Catalogs.Catalog()})
}
