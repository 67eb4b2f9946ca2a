package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/iot-admin-core/internal/color"
)

// ColorResponse is the RGB form of a hue/saturation/brightness triple.
type ColorResponse struct {
	Hex string `json:"hex"`
	R   uint8  `json:"r"`
	G   uint8  `json:"g"`
	B   uint8  `json:"b"`
}

// handleColor converts ?h=&s=&b= to RGB for colour previews.
func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var hsb [3]float64
	for i, key := range []string{"h", "s", "b"} {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		if err != nil {
			writeBadRequest(w, "query parameter "+key+" must be a number")
			return
		}
		hsb[i] = v
	}

	rgb := color.HALToRGB(hsb[0], hsb[1], hsb[2])
	writeJSON(w, http.StatusOK, ColorResponse{Hex: rgb.Hex(), R: rgb.R, G: rgb.G, B: rgb.B})
}
