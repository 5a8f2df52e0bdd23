package models

// Option una opción de respuesta dentro de una pregunta
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question estructura para representar una pregunta del quiz de capacitación
type Question struct {
	ID       string   `json:"id"`
	VideoID  string   `json:"videoId"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

// QuestionsData estructura para el JSON completo
type QuestionsData struct {
	Questions []Question `json:"questions"`
	Metadata  struct {
		Total       int    `json:"totalQuestions"`
		Version     string `json:"version"`
		LastUpdated string `json:"lastUpdated"`
		Description string `json:"description"`
	} `json:"metadata"`
}

// CorrectOption devuelve la opción marcada como correcta, o nil si no hay
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// OptionView opción sin la bandera de correcta (vista previa al envío)
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView pregunta tal como se muestra durante el quiz.
// Nunca incluye is_correct; los IDs se conservan aunque el texto esté traducido.
type QuestionView struct {
	ID       string       `json:"id"`
	Question string       `json:"question"`
	Options  []OptionView `json:"options"`
	Language string       `json:"language"`
}

// View construye la vista pública de la pregunta en el idioma original
func (q *Question) View(language string) QuestionView {
	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{ID: opt.ID, Text: opt.Text}
	}
	return QuestionView{
		ID:       q.ID,
		Question: q.Question,
		Options:  options,
		Language: language,
	}
}

// APIResponse estructura estándar para respuestas de API
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CurrentUser contexto inmutable del usuario autenticado.
// Se resuelve una vez por petición y se pasa explícitamente a los servicios;
// se reemplaza completo al cambiar el perfil, nunca se muta en el camino.
type CurrentUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}
