package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"isles-of-conquest/internal/database"
	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/netsync"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/maps"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code protocol.ErrorCode, msg string) {
	writeJSON(w, status, protocol.ErrorPayload{Code: code, Message: msg})
}

// handleWebSocket joins or resumes a player and upgrades the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	inst, ok := s.instanceFor(q.Get("instance"))
	if !ok {
		writeError(w, http.StatusNotFound, protocol.ErrCodeInstanceNotFound, "no such instance")
		return
	}

	conn := s.newConn(inst)
	var player game.PlayerID

	if raw := q.Get("player"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			writeError(w, http.StatusBadRequest, protocol.ErrCodeInvalidRequest, "invalid player id")
			return
		}
		player = game.PlayerID(id)

		switch err := inst.Resume(player, conn); {
		case errors.Is(err, netsync.ErrUnknownPlayer):
			writeError(w, http.StatusNotFound, protocol.ErrCodePlayerNotFound, "player not found")
			return
		case errors.Is(err, netsync.ErrNotDown):
			writeError(w, http.StatusConflict, protocol.ErrCodeNotDown, "player is still connected")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, protocol.ErrCodeInternalError, err.Error())
			return
		}
	} else {
		id, err := inst.Join(q.Get("name"), conn)
		switch {
		case errors.Is(err, ErrInstanceFull):
			writeError(w, http.StatusServiceUnavailable, protocol.ErrCodeInstanceFull, "instance is full")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, protocol.ErrCodeInternalError, err.Error())
			return
		}
		player = id
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		inst.log.WithError(err).WithField("player", player).Info("WebSocket upgrade failed")
		inst.Release(player, conn)
		return
	}
	conn.Serve(ws, player)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := protocol.HealthPayload{Status: "ok", Instances: s.registry.Len()}
	for _, inst := range s.registry.List() {
		payload.Players += inst.Info().Players
	}

	status := http.StatusOK
	if err := s.db.Ping(); err != nil {
		s.log.WithError(err).Warn("Health check: database unreachable")
		payload.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, payload)
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	var payload protocol.PresetListPayload
	for _, p := range maps.List() {
		payload.Presets = append(payload.Presets, protocol.PresetInfo{ID: p.ID, Name: p.Name})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	payload := protocol.InstanceListPayload{Instances: []protocol.InstanceInfo{}}
	for _, inst := range s.registry.List() {
		payload.Instances = append(payload.Instances, inst.Info())
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateInstancePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	inst, err := s.CreateInstance(req)
	switch {
	case errors.Is(err, ErrInstanceLimit):
		writeError(w, http.StatusConflict, protocol.ErrCodeInstanceLimit, "instance limit reached")
		return
	case errors.Is(err, ErrUnknownPreset):
		writeError(w, http.StatusBadRequest, protocol.ErrCodeInvalidRequest, err.Error())
		return
	case err != nil:
		s.log.WithError(err).Error("Failed to create instance")
		writeError(w, http.StatusInternalServerError, protocol.ErrCodeInternalError, "failed to create instance")
		return
	}

	s.log.WithFields(logrus.Fields{"instance": inst.ID, "name": inst.Name}).Info("Instance created")
	writeJSON(w, http.StatusCreated, inst.Info())
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, protocol.ErrCodeInstanceNotFound, "no such instance")
		return
	}
	writeJSON(w, http.StatusOK, inst.Info())
}

func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.DeleteInstance(id); err != nil {
		writeError(w, http.StatusNotFound, protocol.ErrCodeInstanceNotFound, "no such instance")
		return
	}
	s.log.WithField("instance", id).Info("Instance deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKillLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetInstance(id); errors.Is(err, database.ErrInstanceNotFound) {
		writeError(w, http.StatusNotFound, protocol.ErrCodeInstanceNotFound, "no such instance")
		return
	}

	kills, err := s.db.RecentKills(id, queryInt(r, "limit", 50))
	if err != nil {
		s.log.WithError(err).Error("Failed to read kill log")
		writeError(w, http.StatusInternalServerError, protocol.ErrCodeInternalError, "failed to read kill log")
		return
	}

	payload := protocol.KillLogPayload{InstanceID: id, Kills: []protocol.KillEvent{}}
	for _, k := range kills {
		payload.Kills = append(payload.Kills, protocol.KillEvent{
			Tick:      k.Tick,
			Killer:    k.Killer,
			Victim:    k.Victim,
			Timestamp: k.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.db.GetStats(r.PathValue("name"))
	if errors.Is(err, database.ErrPlayerNotFound) {
		writeError(w, http.StatusNotFound, protocol.ErrCodePlayerNotFound, "no stats for player")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Failed to read stats")
		writeError(w, http.StatusInternalServerError, protocol.ErrCodeInternalError, "failed to read stats")
		return
	}
	writeJSON(w, http.StatusOK, statsPayload(st))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := s.db.TopStats(queryInt(r, "limit", 10))
	if err != nil {
		s.log.WithError(err).Error("Failed to read leaderboard")
		writeError(w, http.StatusInternalServerError, protocol.ErrCodeInternalError, "failed to read leaderboard")
		return
	}

	payload := protocol.LeaderboardPayload{Players: []protocol.StatsPayload{}}
	for _, st := range top {
		payload.Players = append(payload.Players, statsPayload(st))
	}
	writeJSON(w, http.StatusOK, payload)
}

func statsPayload(st *database.PlayerStats) protocol.StatsPayload {
	return protocol.StatsPayload{
		Name:      st.Name,
		Kills:     st.Kills,
		Deaths:    st.Deaths,
		UpdatedAt: st.UpdatedAt.Unix(),
	}
}

// queryInt reads a positive integer query parameter, clamped to 100.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, 100)
}
