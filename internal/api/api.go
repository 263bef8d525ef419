// Package api exposes tadox-monitor's service surface over HTTP: batch
// temperature offset updates, room manual control and quick actions.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/clambin/tadox-monitor/internal/offsetsync"
	"github.com/clambin/tadox-monitor/internal/poller"
	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/gorilla/mux"
)

type TadoClient interface {
	GetRooms(ctx context.Context) ([]tadox.Room, error)
	SetRoomTemperature(ctx context.Context, roomId int, temperature float64, durationSeconds int) error
	SetRoomOff(ctx context.Context, roomId int, durationSeconds int) error
	ResumeSchedule(ctx context.Context, roomId int) error
	Boost(ctx context.Context, roomId int) error
	BoostAll(ctx context.Context) error
	ResumeAllSchedules(ctx context.Context) error
	SetOpenWindowDetection(ctx context.Context, roomId int, enabled bool) error
	SetChildLock(ctx context.Context, serialNumber string, enabled bool) error
}

type Server struct {
	TadoClient TadoClient
	Executor   *offsetsync.Executor
	Poller     poller.Poller
	logger     *slog.Logger
	router     *mux.Router
}

func New(client TadoClient, executor *offsetsync.Executor, p poller.Poller, logger *slog.Logger) *Server {
	s := Server{
		TadoClient: client,
		Executor:   executor,
		Poller:     p,
		logger:     logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/offsets", s.updateOffsets).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/rooms", s.getRooms).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/rooms/{id}/manualControl", s.setManualControl).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/rooms/{id}/manualControl", s.resumeSchedule).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/rooms/{id}/boost", s.boost).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/rooms/{id}/openWindowDetection", s.setOpenWindowDetection).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/devices/{serialNumber}/childLock", s.setChildLock).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/quickActions/boost", s.boostAll).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/quickActions/resumeSchedule", s.resumeAllSchedules).Methods(http.MethodPost)
	s.router = r

	return &s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type offsetsResponse struct {
	Results    map[string]string `json:"results"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Total      int               `json:"total"`
}

// updateOffsets implements the batch offset update service. The request body
// maps device serial numbers to offsets. A malformed body rejects the whole
// call; per-device failures are reported in the response.
func (s *Server) updateOffsets(w http.ResponseWriter, r *http.Request) {
	var request offsetsync.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request == nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.Executor.ExecuteBatch(r.Context(), request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if result.Succeeded() > 0 {
		// pick up the new offsets without waiting for the next poll
		s.Poller.Refresh()
	}

	response := offsetsResponse{
		Results:    make(map[string]string, result.Total()),
		Successful: result.Succeeded(),
		Failed:     result.Failed(),
		Total:      result.Total(),
	}
	for serialNumber, outcome := range result.Outcomes {
		if outcome == nil {
			response.Results[serialNumber] = "success"
		} else {
			response.Results[serialNumber] = "error: " + outcome.Error()
		}
	}
	s.writeJSON(w, response)
}

func (s *Server) getRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.TadoClient.GetRooms(r.Context())
	if err != nil {
		s.logger.Error("failed to get rooms", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, rooms)
}

type manualControlRequest struct {
	Power           string   `json:"power,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	DurationSeconds int      `json:"durationSeconds,omitempty"`
}

func (s *Server) setManualControl(w http.ResponseWriter, r *http.Request) {
	roomId, ok := s.roomId(w, r)
	if !ok {
		return
	}
	var request manualControlRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	switch {
	case request.Power == "OFF":
		err = s.TadoClient.SetRoomOff(r.Context(), roomId, request.DurationSeconds)
	case request.Temperature != nil:
		err = s.TadoClient.SetRoomTemperature(r.Context(), roomId, *request.Temperature, request.DurationSeconds)
	default:
		http.Error(w, "temperature or power OFF required", http.StatusBadRequest)
		return
	}
	s.finish(w, err)
}

func (s *Server) resumeSchedule(w http.ResponseWriter, r *http.Request) {
	roomId, ok := s.roomId(w, r)
	if !ok {
		return
	}
	s.finish(w, s.TadoClient.ResumeSchedule(r.Context(), roomId))
}

func (s *Server) boost(w http.ResponseWriter, r *http.Request) {
	roomId, ok := s.roomId(w, r)
	if !ok {
		return
	}
	s.finish(w, s.TadoClient.Boost(r.Context(), roomId))
}

func (s *Server) boostAll(w http.ResponseWriter, r *http.Request) {
	s.finish(w, s.TadoClient.BoostAll(r.Context()))
}

func (s *Server) resumeAllSchedules(w http.ResponseWriter, r *http.Request) {
	s.finish(w, s.TadoClient.ResumeAllSchedules(r.Context()))
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) setOpenWindowDetection(w http.ResponseWriter, r *http.Request) {
	roomId, ok := s.roomId(w, r)
	if !ok {
		return
	}
	var request enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.finish(w, s.TadoClient.SetOpenWindowDetection(r.Context(), roomId, request.Enabled))
}

func (s *Server) setChildLock(w http.ResponseWriter, r *http.Request) {
	var request enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.finish(w, s.TadoClient.SetChildLock(r.Context(), mux.Vars(r)["serialNumber"], request.Enabled))
}

func (s *Server) roomId(w http.ResponseWriter, r *http.Request) (int, bool) {
	roomId, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return 0, false
	}
	return roomId, true
}

func (s *Server) finish(w http.ResponseWriter, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.Poller.Refresh()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, response any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode response", slog.Any("err", err))
	}
}
