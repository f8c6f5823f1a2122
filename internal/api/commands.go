package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/bambu-core/internal/command"
	"github.com/nerrad567/bambu-core/internal/infrastructure/mqtt"
)

// SpeedRequest is the body of POST /commands/speed.
type SpeedRequest struct {
	Level int `json:"level"`
}

// StateRequest is the body of POST /commands/state.
type StateRequest struct {
	State string `json:"state"`
}

// LightRequest is the body of POST /commands/light. Light is "chamber",
// "logo" or "nozzle"; Mode is "on", "off" or, for the chamber only, "flashing".
type LightRequest struct {
	Light string               `json:"light"`
	Mode  string               `json:"mode"`
	Loop  *command.LoopOptions `json:"loop,omitempty"`
}

// FanRequest is the body of POST /commands/fan.
type FanRequest struct {
	Fan     string `json:"fan"`
	Percent int    `json:"percent"`
}

// TemperatureRequest is the body of POST /commands/temperature.
type TemperatureRequest struct {
	Heater  string `json:"heater"`
	Degrees int    `json:"degrees"`
}

// GCodeRequest is the body of POST /commands/gcode.
type GCodeRequest struct {
	Lines []string `json:"lines"`
}

// chamberLight selects the ledctrl command in a LightRequest.
const chamberLight = "chamber"

func (s *Server) handleSpeedCommand(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.invoke(w, command.UpdateSpeed{Level: req.Level})
}

func (s *Server) handleStateCommand(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.invoke(w, command.UpdateState{State: command.PrintState(req.State)})
}

func (s *Server) handleLightCommand(w http.ResponseWriter, r *http.Request) {
	var req LightRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Light == chamberLight {
		s.invoke(w, command.UpdateChamberLight{Mode: command.LightMode(req.Mode), Loop: req.Loop})
		return
	}

	switch command.LightMode(req.Mode) {
	case command.LightOn, command.LightOff:
	default:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "mode must be on or off for "+req.Light)
		return
	}
	s.invoke(w, command.UpdateLight{
		Light: command.Light(req.Light),
		On:    command.LightMode(req.Mode) == command.LightOn,
	})
}

func (s *Server) handleFanCommand(w http.ResponseWriter, r *http.Request) {
	var req FanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.invoke(w, command.UpdateFan{Fan: command.Fan(req.Fan), Percent: req.Percent})
}

func (s *Server) handleTemperatureCommand(w http.ResponseWriter, r *http.Request) {
	var req TemperatureRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.invoke(w, command.UpdateTemperature{Heater: command.Heater(req.Heater), Degrees: req.Degrees})
}

func (s *Server) handleGCodeCommand(w http.ResponseWriter, r *http.Request) {
	var req GCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.invoke(w, command.GCode{Lines: req.Lines})
}

// invoke publishes cmd and maps the outcome to a response.
func (s *Server) invoke(w http.ResponseWriter, cmd command.Command) {
	err := s.printer.Invoke(cmd)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":  "sent",
			"command": cmd.Name(),
		})
	case errors.Is(err, command.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, mqtt.ErrNotConnected):
		writeUnavailable(w, "printer is not connected")
	default:
		s.logger.Error("publishing command failed", "command", cmd.Name(), "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "publishing command failed")
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
