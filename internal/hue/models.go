package hue

// LightState represents the reported state of a light (v1 API)
type LightState struct {
	On        bool `json:"on"`
	Reachable bool `json:"reachable"`
}

// Light represents a Hue light (v1 API)
type Light struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	State LightState `json:"state"`
}

// Scene represents a Hue scene (v1 API)
type Scene struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Group  string   `json:"group"`
	Lights []string `json:"lights"`
}

// Group represents a Hue group (v1 API)
type Group struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Lights []string `json:"lights"`
	Type   string   `json:"type"`
}
