package model

// Warning is a recoverable, per-item problem reported next to a result.
type Warning struct {
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Source == "" {
		return w.Message
	}
	return w.Source + ": " + w.Message
}
