package gallery

// Params identify the external resource linked from the gallery page.
type Params struct {
	PID string `json:"pID"`
	Wnr string `json:"wnr"`
}

// DefaultParams are in effect until a manager sets new ones.
var DefaultParams = Params{PID: "1022898", Wnr: "92117"}
