package wallpanel

import "fmt"

// Payload is a decoded JSON response from the device. Non-200 responses are
// turned into a payload of the form {"status": "Error", "statustext": ...}.
type Payload map[string]any

func errorPayload(code int) Payload {
	return Payload{
		"status":     "Error",
		"statustext": fmt.Sprintf("Received HTTP %d from server", code),
	}
}

func (p Payload) IsError() bool {
	status, _ := p["status"].(string)
	return status == "Error"
}

func (p Payload) StatusText() string {
	text, _ := p["statustext"].(string)
	return text
}
