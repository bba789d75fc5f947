package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req CreateRoomRequest
	if err := bindJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	room, err := h.Rooms.Create(r.Context(), id, req.ThemeID, req.maxPlayers())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, room)
}

func (h *Handlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Rooms.Get(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, room)
}

func (h *Handlers) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req JoinRoomRequest
	if r.ContentLength != 0 {
		if err := bindJSON(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	participant, err := h.Rooms.Join(r.Context(), chi.URLParam(r, "identifier"), id, req.nickname())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, participant)
}

func (h *Handlers) handleSetReady(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req SetReadyRequest
	if err := bindJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	participant, err := h.Rooms.SetReady(r.Context(), roomID, id, *req.IsReady)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, participant)
}

func (h *Handlers) handleStartGame(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	room, err := h.Rooms.Start(r.Context(), roomID, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, room)
}

func (h *Handlers) handleSubmitRound(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req SubmitRoundRequest
	if err := bindJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Rooms.SubmitRound(r.Context(), roomID, id, req.Answers)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleCheckRound(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Rooms.CheckRound(r.Context(), roomID, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleRoundResults(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	round, err := parseIntParam(r, "round")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	results, err := h.Results.RoundResults(r.Context(), roomID, round)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, results)
}

func (h *Handlers) handleNextRound(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	room, err := h.Rooms.NextRound(r.Context(), roomID, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, room)
}

func (h *Handlers) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Rooms.InviteQRCode(r.Context(), chi.URLParam(r, "identifier"), h.opts.PublicURL)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(png)
}
