package wiimote

// Status is one sample of a remote as reported by the console browser. JSON
// names match the browser's status object so it can be forwarded unchanged.
type Status struct {
	Enabled   bool    `json:"isEnabled"`
	DataValid bool    `json:"isDataValid"`
	Browsing  bool    `json:"isBrowsing"`
	Hold      uint32  `json:"hold"`
	ScreenX   float64 `json:"dpdScreenX"`
	ScreenY   float64 `json:"dpdScreenY"`
	RollX     float64 `json:"dpdRollX"`
	RollY     float64 `json:"dpdRollY"`
	Distance  float64 `json:"dpdDistance"`
}

// Available reports whether the sample can be dispatched on.
func (s Status) Available() bool {
	return s.Enabled && s.DataValid
}

// StatusSource queries remotes by channel (remote id minus one). ok is false
// when the channel has nothing to report.
type StatusSource interface {
	Status(channel int) (s Status, ok bool)
}

// StatusSourceFunc adapts a function to StatusSource.
type StatusSourceFunc func(channel int) (Status, bool)

func (f StatusSourceFunc) Status(channel int) (Status, bool) {
	return f(channel)
}
