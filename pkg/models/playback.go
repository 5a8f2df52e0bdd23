package models

import "time"

// PlaybackState estado de reproducción de un usuario sobre un video.
// Furthest es un trinquete: solo crece durante la vida de la sesión de
// reproducción, independiente de lo que el reproductor reporte mientras
// se corrige una posición.
type PlaybackState struct {
	UserID       string    `json:"userId"`
	VideoID      string    `json:"videoId"`
	VideoURL     string    `json:"videoUrl"`
	Furthest     float64   `json:"furthest"`
	Duration     float64   `json:"duration"`
	Playing      bool      `json:"playing"`
	QuizUnlocked bool      `json:"quizUnlocked"`
	Completed    bool      `json:"completed"`
	StartTime    time.Time `json:"startTime"`
	LastActivity time.Time `json:"lastActivity"`
}

// PlaybackStartRequest request para montar/reanudar la reproducción
type PlaybackStartRequest struct {
	VideoURL string `json:"videoUrl"`
}

// TimeUpdateRequest evento timeupdate del reproductor
type TimeUpdateRequest struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Playing     bool    `json:"playing"`
}

// SeekRequest intento de búsqueda del reproductor
type SeekRequest struct {
	TargetTime float64 `json:"targetTime"`
}

// RateRequest cambio de velocidad del reproductor
type RateRequest struct {
	Rate float64 `json:"rate"`
}

// ToggleRequest transición play/pausa iniciada por el usuario
type ToggleRequest struct {
	Playing bool `json:"playing"`
}

// PlaybackDecision veredicto del guardián sobre un evento del reproductor.
// Cuando Accepted es false el cliente debe aplicar ForcePosition/ForceRate.
type PlaybackDecision struct {
	Accepted      bool     `json:"accepted"`
	Advanced      bool     `json:"advanced"`
	ForcePosition *float64 `json:"forcePosition,omitempty"`
	ForceRate     *float64 `json:"forceRate,omitempty"`
	Furthest      float64  `json:"furthest"`
	QuizUnlocked  bool     `json:"quizUnlocked"`
	Completed     bool     `json:"completed"`
}

// PlaybackResponse respuesta de los endpoints de reproducción
type PlaybackResponse struct {
	State          *PlaybackState    `json:"state,omitempty"`
	Decision       *PlaybackDecision `json:"decision,omitempty"`
	ResumePosition float64           `json:"resumePosition"`
}
