package handlers

import (
	"fmt"

	"github.com/backsoul/training/pkg/services"
	"github.com/valyala/fasthttp"
)

// QuestionHandler maneja las peticiones HTTP del catálogo de preguntas
type QuestionHandler struct {
	questionService *services.QuestionService
	questionsFile   string
}

// NewQuestionHandler crea una nueva instancia del handler de preguntas
func NewQuestionHandler(questionService *services.QuestionService, questionsFile string) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		questionsFile:   questionsFile,
	}
}

// HealthCheck maneja GET /api/health
func (h *QuestionHandler) HealthCheck(ctx *fasthttp.RequestCtx) {
	if err := h.questionService.HealthCheck(); err != nil {
		respondWithError(ctx, fasthttp.StatusServiceUnavailable, fmt.Sprintf("Servicio no disponible: %v", err))
		return
	}

	respondWithSuccess(ctx, map[string]interface{}{
		"status": "ok",
	}, "Servidor de capacitación funcionando")
}

// GetQuestionsForVideo maneja GET /api/questions?videoId=
// Solo para administradores: incluye la bandera de opción correcta.
func (h *QuestionHandler) GetQuestionsForVideo(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	if user.Role != "admin" {
		respondWithError(ctx, fasthttp.StatusForbidden, "Solo administradores pueden ver el catálogo completo")
		return
	}

	videoID := string(ctx.QueryArgs().Peek("videoId"))
	if videoID == "" {
		respondWithError(ctx, fasthttp.StatusBadRequest, "El parámetro videoId es requerido")
		return
	}

	questions, err := h.questionService.GetQuestionsForVideo(videoID)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error obteniendo preguntas: %v", err))
		return
	}

	respondWithSuccess(ctx, map[string]interface{}{
		"questions": questions,
		"count":     len(questions),
	}, fmt.Sprintf("%d preguntas obtenidas", len(questions)))
}

// GetQuestion maneja GET /api/questions/{id}
func (h *QuestionHandler) GetQuestion(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	if user.Role != "admin" {
		respondWithError(ctx, fasthttp.StatusForbidden, "Solo administradores pueden consultar preguntas individuales")
		return
	}

	questionID := ctx.UserValue("id").(string)

	question, err := h.questionService.GetQuestion(questionID)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Pregunta no encontrada: %v", err))
		return
	}

	respondWithSuccess(ctx, question, "Pregunta obtenida exitosamente")
}

// GetQuestionMetadata maneja GET /api/questions/metadata
func (h *QuestionHandler) GetQuestionMetadata(ctx *fasthttp.RequestCtx) {
	metadata, err := h.questionService.GetQuestionMetadata()
	if err != nil {
		respondWithError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("Metadatos no disponibles: %v", err))
		return
	}

	respondWithSuccess(ctx, metadata, "Metadatos obtenidos exitosamente")
}

// ReloadQuestions maneja POST /api/questions/reload
func (h *QuestionHandler) ReloadQuestions(ctx *fasthttp.RequestCtx) {
	user := currentUser(ctx)
	if user.Role != "admin" {
		respondWithError(ctx, fasthttp.StatusForbidden, "Solo administradores pueden recargar preguntas")
		return
	}

	if err := h.questionService.ReloadQuestions(h.questionsFile); err != nil {
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error recargando preguntas: %v", err))
		return
	}

	respondWithSuccess(ctx, nil, "Preguntas recargadas exitosamente")
}
