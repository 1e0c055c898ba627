// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/nostalgia/internal/library"
	"github.com/ManuGH/nostalgia/internal/log"
)

type channelsResponse struct {
	Channels []library.Channel `json:"channels"`
}

type itemView struct {
	library.Item
	Size string `json:"size"`
}

type itemsResponse struct {
	Channel string     `json:"channel"`
	Items   []itemView `json:"items"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.library.Channels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if channels == nil {
		channels = []library.Channel{}
	}
	writeJSON(w, http.StatusOK, channelsResponse{Channels: channels})
}

func (s *Server) handleChannelItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	items, err := s.library.Items(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := itemsResponse{Channel: id, Items: make([]itemView, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, itemView{Item: it, Size: humanize.Bytes(uint64(max(it.SizeBytes, 0)))})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScan rescans the library and rebuilds the channel menu.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res, err := s.library.Scan(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.player.RefreshChannels(r.Context()); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "library.menu_failed").
			Msg("scan finished but the channel menu was not rebuilt")
	}
	writeJSON(w, http.StatusOK, res)
}
