package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/services"
	websocketHub "github.com/backsoul/training/pkg/websocket"
	"github.com/valyala/fasthttp"
)

// QuizHandler maneja las peticiones HTTP del motor de quiz
type QuizHandler struct {
	quizService      *services.QuizService
	playbackService  *services.PlaybackService
	translateService *services.TranslateService
	hub              *websocketHub.Hub
}

// NewQuizHandler crea una nueva instancia del handler de quiz
func NewQuizHandler(quizService *services.QuizService, playbackService *services.PlaybackService, translateService *services.TranslateService, hub *websocketHub.Hub) *QuizHandler {
	return &QuizHandler{
		quizService:      quizService,
		playbackService:  playbackService,
		translateService: translateService,
		hub:              hub,
	}
}

// StartQuiz maneja POST /api/quiz/sessions
func (h *QuizHandler) StartQuiz(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)

	var request models.SessionCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	if request.VideoID == "" {
		respondWithError(ctx, fasthttp.StatusBadRequest, "El videoId es requerido")
		return
	}

	// El quiz solo se monta cuando el guardián lo desbloqueó
	unlocked, err := h.playbackService.IsQuizUnlocked(user, request.VideoID)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Error verificando desbloqueo: %v", err))
		return
	}
	if !unlocked {
		respondWithError(ctx, fasthttp.StatusForbidden, "Debes ver más del video para desbloquear el quiz")
		return
	}

	session, total, err := h.quizService.StartSession(user, request.VideoID)
	if err != nil {
		if err == services.ErrNoQuestions {
			respondWithError(ctx, fasthttp.StatusConflict, "No hay preguntas disponibles para este video")
			return
		}
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error iniciando quiz: %v", err))
		return
	}

	respondWithSuccess(ctx, models.SessionResponse{
		Session:        session,
		TotalQuestions: total,
	}, "Quiz iniciado")
}

// GetSession maneja GET /api/quiz/sessions/{id}
// Devuelve la pregunta actual, traducida si la sesión está en otro idioma.
func (h *QuizHandler) GetSession(ctx *fasthttp.RequestCtx) {
	session, ok := h.ownedSession(ctx)
	if !ok {
		return
	}

	if session.Submitted {
		respondWithSuccess(ctx, models.SessionResponse{
			Session: session,
			Message: "Quiz enviado; consulta los resultados",
		}, "Sesión obtenida")
		return
	}

	question, total, err := h.quizService.CurrentQuestion(session)
	if err != nil {
		if err == services.ErrNoQuestions {
			respondWithError(ctx, fasthttp.StatusConflict, "No hay preguntas disponibles para este video")
			return
		}
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error obteniendo pregunta: %v", err))
		return
	}

	// La traducción falla suave: ante cualquier error se muestra el original
	view := h.translateService.TranslateQuestion(question, session.Language)

	// Precalentar la traducción de la siguiente pregunta; el resultado queda
	// ligado a su propia pregunta, nunca a la que está en pantalla
	if next := h.quizService.NextQuestion(session); next != nil {
		go h.translateService.PrefetchQuestion(next, session.Language)
	}

	respondWithSuccess(ctx, models.SessionResponse{
		Session:        session,
		Question:       &view,
		TotalQuestions: total,
	}, "Pregunta actual obtenida")
}

// SelectAnswer maneja POST /api/quiz/sessions/{id}/answer
func (h *QuizHandler) SelectAnswer(ctx *fasthttp.RequestCtx) {
	session, ok := h.ownedSession(ctx)
	if !ok {
		return
	}

	var request models.AnswerRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	updated, err := h.quizService.SelectOption(session.ID, request.QuestionID, request.OptionID)
	if err != nil {
		if err == services.ErrAlreadySubmitted {
			respondWithError(ctx, fasthttp.StatusConflict, "El quiz ya fue enviado")
			return
		}
		respondWithError(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("Error registrando respuesta: %v", err))
		return
	}

	respondWithSuccess(ctx, models.SessionResponse{
		Session: updated,
	}, "Respuesta registrada")
}

// Next maneja POST /api/quiz/sessions/{id}/next
func (h *QuizHandler) Next(ctx *fasthttp.RequestCtx) {
	session, ok := h.ownedSession(ctx)
	if !ok {
		return
	}

	updated, submitted, err := h.quizService.GoNext(session.ID)
	if err != nil {
		switch err {
		case services.ErrAlreadySubmitted:
			respondWithError(ctx, fasthttp.StatusConflict, "El quiz ya fue enviado")
		case services.ErrAnswerRequired:
			respondWithError(ctx, fasthttp.StatusBadRequest, "Selecciona una opción antes de continuar")
		default:
			respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error avanzando: %v", err))
		}
		return
	}

	message := "Pregunta avanzada"
	if submitted {
		message = fmt.Sprintf("Quiz enviado: %d%%", updated.Score)
		// onComplete se reporta exactamente una vez: solo la llamada que
		// cerró el cerrojo llega aquí con submitted=true
		h.hub.BroadcastQuizComplete(updated.ID, updated.VideoID, updated.Score, updated.Passed)
	}

	respondWithSuccess(ctx, models.SessionResponse{
		Session: updated,
	}, message)
}

// Previous maneja POST /api/quiz/sessions/{id}/previous
func (h *QuizHandler) Previous(ctx *fasthttp.RequestCtx) {
	session, ok := h.ownedSession(ctx)
	if !ok {
		return
	}

	updated, err := h.quizService.GoPrevious(session.ID)
	if err != nil {
		if err == services.ErrAlreadySubmitted {
			respondWithError(ctx, fasthttp.StatusConflict, "El quiz ya fue enviado")
			return
		}
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error retrocediendo: %v", err))
		return
	}

	respondWithSuccess(ctx, models.SessionResponse{
		Session: updated,
	}, "Pregunta anterior")
}

// SetLanguage maneja POST /api/quiz/sessions/{id}/language
func (h *QuizHandler) SetLanguage(ctx *fasthttp.RequestCtx) {
	session, ok := h.ownedSession(ctx)
	if !ok {
		return
	}

	var request models.LanguageRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	updated, err := h.quizService.SetLanguage(session.ID, request.Language)
	if err != nil {
		if err == services.ErrAlreadySubmitted {
			respondWithError(ctx, fasthttp.StatusConflict, "El idioma queda bloqueado tras el envío")
			return
		}
		respondWithError(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("Error cambiando idioma: %v", err))
		return
	}

	respondWithSuccess(ctx, models.SessionResponse{
		Session: updated,
	}, "Idioma actualizado")
}

// Retake maneja POST /api/quiz/sessions/{id}/retake
func (h *QuizHandler) Retake(ctx *fasthttp.RequestCtx) {
	session, ok := h.ownedSession(ctx)
	if !ok {
		return
	}

	user := currentUser(ctx)
	fresh, total, err := h.quizService.Retake(user, session.ID)
	if err != nil {
		if err == services.ErrNotSubmitted {
			respondWithError(ctx, fasthttp.StatusConflict, "Solo puedes repetir un quiz ya enviado")
			return
		}
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error repitiendo quiz: %v", err))
		return
	}

	respondWithSuccess(ctx, models.SessionResponse{
		Session:        fresh,
		TotalQuestions: total,
	}, "Nuevo intento iniciado")
}

// GetResults maneja GET /api/quiz/sessions/{id}/results
func (h *QuizHandler) GetResults(ctx *fasthttp.RequestCtx) {
	session, ok := h.ownedSession(ctx)
	if !ok {
		return
	}

	results, err := h.quizService.Results(session.ID)
	if err != nil {
		if err == services.ErrNotSubmitted {
			respondWithError(ctx, fasthttp.StatusConflict, "El quiz aún no ha sido enviado")
			return
		}
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error obteniendo resultados: %v", err))
		return
	}

	respondWithSuccess(ctx, results, "Resultados obtenidos")
}

// GetHistory maneja GET /api/quiz/results/history
func (h *QuizHandler) GetHistory(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)

	sessions, err := h.quizService.GetHistory(user)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error obteniendo historial: %v", err))
		return
	}

	respondWithSuccess(ctx, map[string]interface{}{
		"results": sessions,
		"count":   len(sessions),
	}, fmt.Sprintf("%d resultados obtenidos", len(sessions)))
}

// ownedSession carga la sesión de la ruta y verifica que pertenezca al
// usuario autenticado. Responde el error por su cuenta si algo falla.
func (h *QuizHandler) ownedSession(ctx *fasthttp.RequestCtx) (*models.QuizSession, bool) {
	user := currentUser(ctx)
	sessionID := ctx.UserValue("id").(string)

	session, err := h.quizService.GetSession(sessionID)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Sesión no encontrada: %v", err))
		return nil, false
	}

	if session.UserID != user.ID {
		respondWithError(ctx, fasthttp.StatusForbidden, "La sesión no pertenece al usuario")
		return nil, false
	}

	return session, true
}
