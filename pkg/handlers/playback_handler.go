package handlers

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/services"
	websocketHub "github.com/backsoul/training/pkg/websocket"
	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
)

// PlaybackHandler maneja los eventos del reproductor de video. El guardián
// del servidor decide cada evento; el handler traduce el veredicto a HTTP y
// difunde los avances legítimos por el hub.
type PlaybackHandler struct {
	playbackService *services.PlaybackService
	hub             *websocketHub.Hub
}

// NewPlaybackHandler crea una nueva instancia del handler de reproducción
func NewPlaybackHandler(playbackService *services.PlaybackService, hub *websocketHub.Hub) *PlaybackHandler {
	return &PlaybackHandler{
		playbackService: playbackService,
		hub:             hub,
	}
}

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		return true // Permitir conexiones desde cualquier origen en desarrollo
	},
}

// StartPlayback maneja POST /api/trainings/{videoId}/playback/start
func (h *PlaybackHandler) StartPlayback(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	videoID := ctx.UserValue("videoId").(string)

	var request models.PlaybackStartRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	if request.VideoURL == "" {
		respondWithError(ctx, fasthttp.StatusBadRequest, "La URL del video es requerida")
		return
	}

	state, err := h.playbackService.StartPlayback(user, videoID, request.VideoURL)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error iniciando reproducción: %v", err))
		return
	}

	respondWithSuccess(ctx, models.PlaybackResponse{
		State:          state,
		ResumePosition: state.Furthest,
	}, "Reproducción iniciada")
}

// GetPlayback maneja GET /api/trainings/{videoId}/playback
func (h *PlaybackHandler) GetPlayback(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	videoID := ctx.UserValue("videoId").(string)

	state, err := h.playbackService.GetState(user, videoID)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Estado no encontrado: %v", err))
		return
	}

	respondWithSuccess(ctx, models.PlaybackResponse{
		State:          state,
		ResumePosition: state.Furthest,
	}, "Estado de reproducción obtenido")
}

// TimeUpdate maneja POST /api/trainings/{videoId}/playback/time
func (h *PlaybackHandler) TimeUpdate(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	videoID := ctx.UserValue("videoId").(string)

	var request models.TimeUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	state, decision, err := h.playbackService.HandleTimeUpdate(user, videoID, request.CurrentTime, request.Duration, request.Playing)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Error procesando avance: %v", err))
		return
	}

	// Solo los avances legítimos del trinquete se reportan hacia arriba
	if decision.Advanced {
		h.hub.BroadcastTimeUpdate(videoID, request.CurrentTime, state.Duration)
	}

	respondWithSuccess(ctx, models.PlaybackResponse{
		State:          state,
		Decision:       decision,
		ResumePosition: state.Furthest,
	}, "Avance procesado")
}

// Seek maneja POST /api/trainings/{videoId}/playback/seek
func (h *PlaybackHandler) Seek(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	videoID := ctx.UserValue("videoId").(string)

	var request models.SeekRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	state, decision, err := h.playbackService.HandleSeek(user, videoID, request.TargetTime)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Error procesando búsqueda: %v", err))
		return
	}

	respondWithSuccess(ctx, models.PlaybackResponse{
		State:          state,
		Decision:       decision,
		ResumePosition: state.Furthest,
	}, "Búsqueda procesada")
}

// RateChange maneja POST /api/trainings/{videoId}/playback/rate
func (h *PlaybackHandler) RateChange(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	videoID := ctx.UserValue("videoId").(string)

	var request models.RateRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	decision, err := h.playbackService.HandleRateChange(user, videoID, request.Rate)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Error procesando velocidad: %v", err))
		return
	}

	respondWithSuccess(ctx, models.PlaybackResponse{
		Decision: decision,
	}, "Velocidad procesada")
}

// Ended maneja POST /api/trainings/{videoId}/playback/ended
func (h *PlaybackHandler) Ended(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	videoID := ctx.UserValue("videoId").(string)

	state, decision, err := h.playbackService.HandleEnded(user, videoID)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Error marcando video terminado: %v", err))
		return
	}

	message := "Final rechazado: posición forzada al punto más lejano visto"
	if decision.Accepted {
		message = "Video completado"
		h.hub.BroadcastVideoEnded(user.ID, videoID)
	}

	respondWithSuccess(ctx, models.PlaybackResponse{
		State:          state,
		Decision:       decision,
		ResumePosition: state.Furthest,
	}, message)
}

// Toggle maneja POST /api/trainings/{videoId}/playback/toggle
func (h *PlaybackHandler) Toggle(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	videoID := ctx.UserValue("videoId").(string)

	var request models.ToggleRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	state, err := h.playbackService.HandleToggle(user, videoID, request.Playing)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Error procesando play/pausa: %v", err))
		return
	}

	h.hub.BroadcastPlayState(user.ID, videoID, request.Playing)

	respondWithSuccess(ctx, models.PlaybackResponse{
		State:          state,
		ResumePosition: state.Furthest,
	}, "Transición registrada")
}

// HandleWebSocket maneja las conexiones WebSocket de eventos de capacitación.
// El registro en el hub es de alcance limitado: se libera garantizado al
// cerrar la conexión.
func (h *PlaybackHandler) HandleWebSocket(ctx *fasthttp.RequestCtx) {
	err := upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
		defer ws.Close()

		h.hub.Register(ws)
		defer h.hub.Unregister(ws)

		// Escuchar hasta que el cliente se desconecte
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
	})

	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
	}
}
