package server

import (
	"net/http"
	"strconv"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/models"
)

// -----------------------------------------------------------------------------

// statusFor maps the datafeed error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case helpers.IsMalformedSymbol(err):
		return http.StatusBadRequest
	case helpers.IsUnknownSymbol(err):
		return http.StatusNotFound
	case helpers.IsUpstreamQuery(err), helpers.IsTransport(err), helpers.IsReferenceUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// -----------------------------------------------------------------------------

// udfHistory is the UDF history payload. Times are unix seconds.
type udfHistory struct {
	S      string    `json:"s"`
	ErrMsg string    `json:"errmsg,omitempty"`
	T      []int64   `json:"t,omitempty"`
	O      []float64 `json:"o,omitempty"`
	H      []float64 `json:"h,omitempty"`
	L      []float64 `json:"l,omitempty"`
	C      []float64 `json:"c,omitempty"`
	V      []float64 `json:"v,omitempty"`
}

func toUDF(res models.MHistoryResult) udfHistory {
	if res.NoData || len(res.Bars) == 0 {
		return udfHistory{S: "no_data"}
	}

	n := len(res.Bars)
	out := udfHistory{
		S: "ok",
		T: make([]int64, 0, n),
		O: make([]float64, 0, n),
		H: make([]float64, 0, n),
		L: make([]float64, 0, n),
		C: make([]float64, 0, n),
		V: make([]float64, 0, n),
	}
	for _, b := range res.Bars {
		out.T = append(out.T, b.Time/1000)
		out.O = append(out.O, b.Open)
		out.H = append(out.H, b.High)
		out.L = append(out.L, b.Low)
		out.C = append(out.C, b.Close)
		out.V = append(out.V, b.Volume)
	}
	return out
}

// -----------------------------------------------------------------------------

func parseInt64(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}
