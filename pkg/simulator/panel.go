// Package simulator provides an in-memory wall panel that serves the same
// HTTP API as the WallPanel app.
package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultStartURL   = "http://localhost:8123/lovelace/0"
	DefaultBrightness = 255
)

type panelState struct {
	ScreenOn   bool   `json:"screenOn"`
	CurrentURL string `json:"currentUrl"`
	Brightness int    `json:"brightness"`
}

// Panel implements http.Handler.
type Panel struct {
	logger   log.FieldLogger
	startURL string
	mux      *http.ServeMux

	mu            sync.Mutex
	state         panelState
	failStatus    int
	stateRequests int
	commands      []map[string]any
	lastAudio     string
	lastSpeech    string
	relaunches    int
}

func NewPanel(startURL string, logger log.FieldLogger) *Panel {
	if startURL == "" {
		startURL = DefaultStartURL
	}

	p := &Panel{
		logger:   logger,
		startURL: startURL,
		state: panelState{
			ScreenOn:   true,
			CurrentURL: startURL,
			Brightness: DefaultBrightness,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", p.handleState)
	mux.HandleFunc("POST /api/command", p.handleCommand)
	p.mux = mux

	return p
}

func (p *Panel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(w, r)
}

// SetFailStatus makes every following request answer with code. Zero
// restores normal operation.
func (p *Panel) SetFailStatus(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failStatus = code
}

func (p *Panel) SetScreenOn(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.ScreenOn = on
}

func (p *Panel) SetCurrentURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.CurrentURL = url
}

func (p *Panel) SetBrightness(brightness int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Brightness = brightness
}

// State returns screen flag, current URL and brightness.
func (p *Panel) State() (bool, string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.ScreenOn, p.state.CurrentURL, p.state.Brightness
}

func (p *Panel) StateRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateRequests
}

// Commands returns the accepted command bodies in arrival order.
func (p *Panel) Commands() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmds := make([]map[string]any, len(p.commands))
	copy(cmds, p.commands)
	return cmds
}

func (p *Panel) LastAudio() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAudio
}

func (p *Panel) LastSpeech() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSpeech
}

func (p *Panel) Relaunches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.relaunches
}

func (p *Panel) handleState(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.stateRequests++
	fail := p.failStatus
	state := p.state
	p.mu.Unlock()

	if fail != 0 {
		http.Error(w, http.StatusText(fail), fail)
		return
	}

	writeJSON(w, state)
}

func (p *Panel) handleCommand(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	fail := p.failStatus
	p.mu.Unlock()

	if fail != 0 {
		http.Error(w, http.StatusText(fail), fail)
		return
	}

	var cmd map[string]any
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid command body", http.StatusBadRequest)
		return
	}
	if len(cmd) != 1 {
		http.Error(w, "exactly one command expected", http.StatusBadRequest)
		return
	}

	if err := p.apply(cmd); err != nil {
		p.logger.Warnf("Rejected command %v: %v", cmd, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.logger.Infof("Command: %v", cmd)
	writeJSON(w, map[string]string{"result": "OK"})
}

type commandError string

func (e commandError) Error() string { return string(e) }

func (p *Panel) apply(cmd map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, value := range cmd {
		switch key {
		case "relaunch":
			if v, ok := value.(bool); !ok || !v {
				return commandError("relaunch must be true")
			}
			p.state.CurrentURL = p.startURL
			p.state.ScreenOn = true
			p.relaunches++
		case "url":
			url, ok := value.(string)
			if !ok {
				return commandError("url must be a string")
			}
			p.state.CurrentURL = url
		case "brightness":
			s, ok := value.(string)
			if !ok {
				return commandError("brightness must be a string")
			}
			b, err := strconv.Atoi(s)
			if err != nil || b < 0 || b > 255 {
				return commandError("brightness must be an integer between 0 and 255")
			}
			p.state.Brightness = b
		case "audio":
			url, ok := value.(string)
			if !ok {
				return commandError("audio must be a string")
			}
			p.lastAudio = url
		case "speak":
			msg, ok := value.(string)
			if !ok {
				return commandError("speak must be a string")
			}
			p.lastSpeech = msg
		default:
			return commandError("unknown command " + key)
		}
	}

	p.commands = append(p.commands, cmd)
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
