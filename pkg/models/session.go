package models

import "time"

// Idiomas soportados por la superposición de traducción
const (
	LanguageEnglish = "en"
	LanguageHindi   = "hi"
)

// QuizSession representa un intento de quiz de un usuario sobre un video.
// Answers mapea ID de pregunta -> ID de opción seleccionada (una por pregunta).
// Submitted es un cerrojo de una sola vía: una vez true nunca vuelve a false.
type QuizSession struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	VideoID      string            `json:"videoId"`
	CurrentIndex int               `json:"currentIndex"`
	Answers      map[string]string `json:"answers"`
	Submitted    bool              `json:"submitted"`
	Score        int               `json:"score"`
	Passed       bool              `json:"passed"`
	Language     string            `json:"language"`
	StartTime    time.Time         `json:"startTime"`
	LastActivity time.Time         `json:"lastActivity"`
	SubmittedAt  *time.Time        `json:"submittedAt,omitempty"`
}

// SessionCreateRequest request para iniciar un quiz
type SessionCreateRequest struct {
	VideoID string `json:"videoId"`
}

// AnswerRequest request para seleccionar una opción
type AnswerRequest struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// LanguageRequest request para cambiar el idioma de la superposición
type LanguageRequest struct {
	Language string `json:"language"`
}

// SessionResponse respuesta de sesión de quiz
type SessionResponse struct {
	Session        *QuizSession  `json:"session,omitempty"`
	Question       *QuestionView `json:"question,omitempty"`
	TotalQuestions int           `json:"totalQuestions,omitempty"`
	Message        string        `json:"message,omitempty"`
}

// QuestionResult desglose por pregunta para la revisión de resultados
type QuestionResult struct {
	Question       Question `json:"question"`
	SelectedOption string   `json:"selectedOptionId"`
	CorrectOption  string   `json:"correctOptionId"`
	Answered       bool     `json:"answered"`
	Correct        bool     `json:"correct"`
}

// QuizResults resultados finales de una sesión enviada
type QuizResults struct {
	SessionID      string           `json:"sessionId"`
	VideoID        string           `json:"videoId"`
	Score          int              `json:"score"`
	Passed         bool             `json:"passed"`
	PassingScore   int              `json:"passingScore"`
	CorrectAnswers int              `json:"correctAnswers"`
	TotalQuestions int              `json:"totalQuestions"`
	Breakdown      []QuestionResult `json:"breakdown"`
	SubmittedAt    *time.Time       `json:"submittedAt,omitempty"`
}
