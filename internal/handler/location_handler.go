package handler

import (
	"net/http"

	"github.com/hitoshi/kudos/internal/geo"
	"github.com/hitoshi/kudos/internal/model"
)

// LocationHandler はオフィス所在判定のHTTPハンドラー。
type LocationHandler struct {
	office geo.Office
}

// NewLocationHandler はLocationHandlerを生成する。
func NewLocationHandler(office geo.Office) *LocationHandler {
	return &LocationHandler{office: office}
}

type locationCheckRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type locationCheckResponse struct {
	IsInOffice bool    `json:"is_in_office"`
	DistanceKM float64 `json:"distance_km"`
}

// CheckLocation は端末の座標がオフィスの半径内かを判定する。
// POST /api/location/check
func (h *LocationHandler) CheckLocation(w http.ResponseWriter, r *http.Request) {
	var req locationCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Latitude == nil || req.Longitude == nil || !geo.ValidCoordinates(*req.Latitude, *req.Longitude) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("A valid latitude and longitude are required."))
		return
	}

	res := h.office.Check(*req.Latitude, *req.Longitude)
	writeJSON(w, http.StatusOK, locationCheckResponse{
		IsInOffice: res.InOffice,
		DistanceKM: res.DistanceKM,
	})
}
