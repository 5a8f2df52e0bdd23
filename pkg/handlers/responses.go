package handlers

import (
	"encoding/json"

	"github.com/backsoul/training/pkg/models"
	"github.com/valyala/fasthttp"
)

// Helpers compartidos para respuestas HTTP con el sobre estándar de la API

func respondWithJSON(ctx *fasthttp.RequestCtx, statusCode int, response interface{}) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.SetStatusCode(statusCode)

	jsonData, err := json.Marshal(response)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"success": false, "error": "Error al serializar respuesta"}`)
		return
	}

	ctx.SetBody(jsonData)
}

func respondWithError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	response := models.APIResponse{
		Success: false,
		Error:   message,
	}
	respondWithJSON(ctx, statusCode, response)
}

func respondWithSuccess(ctx *fasthttp.RequestCtx, data interface{}, message string) {
	response := models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
	respondWithJSON(ctx, fasthttp.StatusOK, response)
}

// currentUser obtiene el contexto de usuario resuelto por el enrutador.
// Llega completo e inmutable; los handlers solo lo leen y lo pasan.
func currentUser(ctx *fasthttp.RequestCtx) *models.CurrentUser {
	user, _ := ctx.UserValue("user").(*models.CurrentUser)
	return user
}
