package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/engine"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// maxBodyBytes bounds request bodies of the control API.
const maxBodyBytes = 1 << 16

// Controller is the engine surface the API drives.
type Controller interface {
	sharedobs.ReadinessChecker
	StationsInfo() []domain.StationInfo
	Station(id string) (domain.Station, bool)
	SelectStation(id string) error
	Deselect()
	Configuration() domain.Configuration
	UpdateConfiguration(fn func(c *domain.Configuration)) (domain.Configuration, error)
	StartSound() error
	PauseSound()
	StopSound()
	Status() engine.Status
}

type selectRequest struct {
	ID string `json:"id"`
}

// configurationPatch holds the fields a PATCH may change; nil means unchanged.
type configurationPatch struct {
	Arrangement   *string  `json:"arrangement"`
	BPM           *float64 `json:"bpm"`
	BPMAuto       *bool    `json:"bpm_auto"`
	InvertedPitch *bool    `json:"inverted_pitch"`
	Volume        *float64 `json:"volume"`
	Med           *bool    `json:"med"`
	Max           *bool    `json:"max"`
	Min           *bool    `json:"min"`
	Drum          *bool    `json:"drum"`
	DrumPattern   *string  `json:"drum_pattern"`
}

func (p configurationPatch) apply(c *domain.Configuration) {
	if p.Arrangement != nil {
		c.Arrangement = *p.Arrangement
	}
	if p.BPM != nil {
		c.BPM = *p.BPM
	}
	if p.BPMAuto != nil {
		c.BPMAuto = *p.BPMAuto
	}
	if p.InvertedPitch != nil {
		c.InvertedPitch = *p.InvertedPitch
	}
	if p.Volume != nil {
		c.Volume = *p.Volume
	}
	if p.Med != nil {
		c.Med = *p.Med
	}
	if p.Max != nil {
		c.Max = *p.Max
	}
	if p.Min != nil {
		c.Min = *p.Min
	}
	if p.Drum != nil {
		c.Drum = *p.Drum
	}
	if p.DrumPattern != nil {
		c.DrumPattern = *p.DrumPattern
	}
}

type statusResponse struct {
	State     string   `json:"state"`
	BPM       float64  `json:"bpm"`
	VolumeDB  *float64 `json:"volume_db"` // null when muted
	Progress  float64  `json:"progress"`
	StationID string   `json:"station_id,omitempty"`
	Month     int      `json:"month"`
	Parts     int      `json:"parts"`
}

func newStatusResponse(s engine.Status) statusResponse {
	resp := statusResponse{
		State:     s.State,
		BPM:       s.BPM,
		Progress:  s.Progress,
		StationID: s.StationID,
		Month:     s.Month,
		Parts:     s.Parts,
	}
	if !math.IsInf(s.VolumeDB, 0) && !math.IsNaN(s.VolumeDB) {
		db := s.VolumeDB
		resp.VolumeDB = &db
	}
	return resp
}

func (s *Server) handleStations(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.ctrl.StationsInfo())
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	st, ok := s.ctrl.Station(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, engine.ErrStationNotFound)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.SelectStation(req.ID); err != nil {
		if errors.Is(err, engine.ErrStationNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.Error("select station failed", "station_id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newStatusResponse(s.ctrl.Status()))
}

func (s *Server) handleDeselect(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfiguration(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.ctrl.Configuration())
}

func (s *Server) handlePatchConfiguration(w http.ResponseWriter, r *http.Request) {
	var patch configurationPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := s.ctrl.UpdateConfiguration(patch.apply)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "start":
		if err := s.ctrl.StartSound(); err != nil {
			if errors.Is(err, domain.ErrAudioContextNotStarted) {
				writeError(w, http.StatusConflict, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	case "pause":
		s.ctrl.PauseSound()
	case "stop":
		s.ctrl.StopSound()
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown transport action"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newStatusResponse(s.ctrl.Status()))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, newStatusResponse(s.ctrl.Status()))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
