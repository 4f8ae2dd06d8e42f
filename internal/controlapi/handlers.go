package controlapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	stack := s.layers.Snapshot()
	resp := make([]layerResponse, len(stack.Layers))
	for i, l := range stack.Layers {
		resp[i] = layerResponse{BlendMode: blendModeName(l.BlendMode), Opacity: l.Opacity, Enabled: l.Enabled}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"layers":       resp,
		"masterDimmer": stack.MasterDimmer,
	})
}

func decodeLayerRequest(r *http.Request) (layerRequest, error) {
	var req layerRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

func (s *Server) handleAppendLayer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLayerRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	layer, err := req.toLayer()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.layers.AppendLayer(layer)
	s.ps.publish(TopicLayerStack, s.layers.Snapshot())
	writeJSON(w, http.StatusCreated, map[string]string{"status": "appended"})
}

func (s *Server) handleSetLayer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req, err := decodeLayerRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	layer, err := req.toLayer()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.layers.SetLayer(index, layer)
	s.ps.publish(TopicLayerStack, s.layers.Snapshot())
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleRemoveLayer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.layers.RemoveLayer(index)
	s.ps.publish(TopicLayerStack, s.layers.Snapshot())
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleSetMasterDimmer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.layers.SetMasterDimmer(body.Value)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleGetBeat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.beat.State())
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	s.beat.Tap()
	writeJSON(w, http.StatusOK, s.beat.State())
}

func (s *Server) handleBeatReset(w http.ResponseWriter, r *http.Request) {
	s.beat.Reset()
	writeJSON(w, http.StatusOK, s.beat.State())
}

func (s *Server) handleSetTempoMultiplier(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Multiplier float64 `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.beat.SetTempoMultiplier(body.Multiplier)
	writeJSON(w, http.StatusOK, map[string]float64{"multiplier": s.beat.TempoMultiplier()})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.discovery.Snapshot())
}

func (s *Server) handleForcePoll(w http.ResponseWriter, r *http.Request) {
	if err := s.discovery.ForcePoll(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "polled"})
}

func (s *Server) handleCaptureScene(w http.ResponseWriter, r *http.Request) {
	scene := s.layers.CaptureScene()
	writeJSON(w, http.StatusOK, newSceneResponse(scene))
}

func (s *Server) handleApplyScene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scene, err := req.toScene()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.layers.ApplyScene(scene)
	s.ps.publish(TopicLayerStack, s.layers.Snapshot())
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (s *Server) handleStartDiscovery(w http.ResponseWriter, r *http.Request) {
	s.discovery.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": "scanning"})
}

func (s *Server) handleStopDiscovery(w http.ResponseWriter, r *http.Request) {
	s.discovery.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleTransportState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": connStateNames[s.transport.State()],
		"nodes": s.transport.DiscoveredNodes(),
	})
}

func (s *Server) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mode, ok := routerModeByName[body.Mode]
	if !ok {
		writeError(w, http.StatusBadRequest, errUnknownMode(body.Mode))
		return
	}
	s.transport.SwitchTo(mode)
	writeJSON(w, http.StatusOK, map[string]string{"mode": routerModeNames[mode]})
}

type unknownModeError string

func (e unknownModeError) Error() string { return "controlapi: unknown transport mode " + string(e) }

func errUnknownMode(mode string) error { return unknownModeError(mode) }
