package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/storage"
)

const playbackKeyPrefix = "training:playback:"

// seekTolerance absorbe el jitter natural del timer del reproductor (en
// segundos) sin permitir saltos deliberados hacia adelante
const seekTolerance = 1.0

// normalRate única velocidad de reproducción permitida
const normalRate = 1.0

// defaultUnlockFraction fracción del video que hay que ver para
// desbloquear el quiz
const defaultUnlockFraction = 0.80

// PlaybackService es el guardián de reproducción: mantiene la posición más
// lejana alcanzada legítimamente por usuario y video, y rechaza los intentos
// de adelantar más allá de esa posición.
type PlaybackService struct {
	store          storage.Store
	unlockFraction float64
}

// NewPlaybackService crea una nueva instancia del guardián de reproducción
func NewPlaybackService(store storage.Store, unlockFraction float64) *PlaybackService {
	if unlockFraction <= 0 || unlockFraction > 1 {
		unlockFraction = defaultUnlockFraction
	}
	return &PlaybackService{
		store:          store,
		unlockFraction: unlockFraction,
	}
}

// StartPlayback monta o reanuda la reproducción de un video. Si existe un
// estado previo, la posición de reanudación es la posición más lejana
// persistida; si no, arranca en 0.
func (s *PlaybackService) StartPlayback(user *models.CurrentUser, videoID, videoURL string) (*models.PlaybackState, error) {
	state, err := s.GetState(user, videoID)
	if err == nil {
		state.VideoURL = videoURL
		state.Playing = false
		state.LastActivity = time.Now()
		if err := s.saveState(state); err != nil {
			return nil, err
		}
		return state, nil
	}

	state = &models.PlaybackState{
		UserID:       user.ID,
		VideoID:      videoID,
		VideoURL:     videoURL,
		Furthest:     0,
		StartTime:    time.Now(),
		LastActivity: time.Now(),
	}

	if err := s.saveState(state); err != nil {
		return nil, err
	}

	return state, nil
}

// GetState obtiene el estado de reproducción de un usuario sobre un video
func (s *PlaybackService) GetState(user *models.CurrentUser, videoID string) (*models.PlaybackState, error) {
	stateJSON, err := s.store.Get(s.playbackKey(user.ID, videoID))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("reproducción no iniciada para el video %s", videoID)
		}
		return nil, fmt.Errorf("error obteniendo estado de reproducción: %v", err)
	}

	var state models.PlaybackState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("error parsing estado de reproducción: %v", err)
	}

	return &state, nil
}

// HandleTimeUpdate procesa un evento timeupdate del reproductor y decide si
// el avance es legítimo
func (s *PlaybackService) HandleTimeUpdate(user *models.CurrentUser, videoID string, currentTime, duration float64, playing bool) (*models.PlaybackState, *models.PlaybackDecision, error) {
	state, err := s.GetState(user, videoID)
	if err != nil {
		return nil, nil, err
	}

	decision := s.applyTimeUpdate(state, currentTime, duration, playing)

	state.LastActivity = time.Now()
	if err := s.saveState(state); err != nil {
		return nil, nil, err
	}

	return state, &decision, nil
}

// applyTimeUpdate política anti-salto sobre el estado:
//   - un salto hacia adelante que excede la tolerancia se rechaza y se fuerza
//     la posición de vuelta al punto más lejano alcanzado
//   - si está reproduciendo y avanza, el trinquete crece (nunca retrocede)
func (s *PlaybackService) applyTimeUpdate(state *models.PlaybackState, currentTime, duration float64, playing bool) models.PlaybackDecision {
	if duration > 0 {
		state.Duration = duration
	}
	state.Playing = playing

	if currentTime > state.Furthest+seekTolerance {
		force := state.Furthest
		return models.PlaybackDecision{
			Accepted:      false,
			ForcePosition: &force,
			Furthest:      state.Furthest,
			QuizUnlocked:  state.QuizUnlocked,
			Completed:     state.Completed,
		}
	}

	advanced := false
	if playing && currentTime > state.Furthest {
		state.Furthest = currentTime
		advanced = true
		s.refreshUnlock(state)
	}

	return models.PlaybackDecision{
		Accepted:     true,
		Advanced:     advanced,
		Furthest:     state.Furthest,
		QuizUnlocked: state.QuizUnlocked,
		Completed:    state.Completed,
	}
}

// HandleSeek procesa un intento de búsqueda; se aplica igual durante la
// búsqueda y al terminarla
func (s *PlaybackService) HandleSeek(user *models.CurrentUser, videoID string, targetTime float64) (*models.PlaybackState, *models.PlaybackDecision, error) {
	state, err := s.GetState(user, videoID)
	if err != nil {
		return nil, nil, err
	}

	decision := models.PlaybackDecision{
		Accepted:     true,
		Furthest:     state.Furthest,
		QuizUnlocked: state.QuizUnlocked,
		Completed:    state.Completed,
	}

	if targetTime > state.Furthest+seekTolerance {
		force := state.Furthest
		decision.Accepted = false
		decision.ForcePosition = &force
	}

	state.LastActivity = time.Now()
	if err := s.saveState(state); err != nil {
		return nil, nil, err
	}

	return state, &decision, nil
}

// HandleRateChange fija la velocidad de reproducción en 1x: cualquier otra
// velocidad se revierte de inmediato
func (s *PlaybackService) HandleRateChange(user *models.CurrentUser, videoID string, rate float64) (*models.PlaybackDecision, error) {
	state, err := s.GetState(user, videoID)
	if err != nil {
		return nil, err
	}

	decision := models.PlaybackDecision{
		Accepted:     true,
		Furthest:     state.Furthest,
		QuizUnlocked: state.QuizUnlocked,
		Completed:    state.Completed,
	}

	if rate != normalRate {
		force := normalRate
		decision.Accepted = false
		decision.ForceRate = &force
	}

	return &decision, nil
}

// HandleEnded procesa el evento ended del reproductor. El evento solo se
// acepta si el trinquete ya está dentro de la tolerancia del final: un ended
// forjado con el video sin ver se rechaza igual que una búsqueda ilegítima,
// con la posición forzada de vuelta al punto más lejano alcanzado.
func (s *PlaybackService) HandleEnded(user *models.CurrentUser, videoID string) (*models.PlaybackState, *models.PlaybackDecision, error) {
	state, err := s.GetState(user, videoID)
	if err != nil {
		return nil, nil, err
	}

	if state.Duration > 0 && state.Duration > state.Furthest+seekTolerance {
		force := state.Furthest
		decision := models.PlaybackDecision{
			Accepted:      false,
			ForcePosition: &force,
			Furthest:      state.Furthest,
			QuizUnlocked:  state.QuizUnlocked,
			Completed:     state.Completed,
		}

		state.LastActivity = time.Now()
		if err := s.saveState(state); err != nil {
			return nil, nil, err
		}

		return state, &decision, nil
	}

	// Llegar al final bajo el trinquete implica haber visto todo el video
	if state.Duration > 0 && state.Duration > state.Furthest {
		state.Furthest = state.Duration
	}
	state.Completed = true
	state.Playing = false
	s.refreshUnlock(state)

	state.LastActivity = time.Now()
	if err := s.saveState(state); err != nil {
		return nil, nil, err
	}

	decision := models.PlaybackDecision{
		Accepted:     true,
		Furthest:     state.Furthest,
		QuizUnlocked: state.QuizUnlocked,
		Completed:    state.Completed,
	}
	return state, &decision, nil
}

// HandleToggle registra una transición play/pausa iniciada por el usuario y
// persiste el estado para poder reanudar después
func (s *PlaybackService) HandleToggle(user *models.CurrentUser, videoID string, playing bool) (*models.PlaybackState, error) {
	state, err := s.GetState(user, videoID)
	if err != nil {
		return nil, err
	}

	state.Playing = playing
	state.LastActivity = time.Now()
	if err := s.saveState(state); err != nil {
		return nil, err
	}

	return state, nil
}

// IsQuizUnlocked indica si el usuario ya vio suficiente video para el quiz
func (s *PlaybackService) IsQuizUnlocked(user *models.CurrentUser, videoID string) (bool, error) {
	state, err := s.GetState(user, videoID)
	if err != nil {
		return false, err
	}
	return state.QuizUnlocked, nil
}

// refreshUnlock recalcula el desbloqueo del quiz; como el trinquete, es de
// una sola vía
func (s *PlaybackService) refreshUnlock(state *models.PlaybackState) {
	if state.QuizUnlocked {
		return
	}
	if state.Duration > 0 && state.Furthest >= s.unlockFraction*state.Duration {
		state.QuizUnlocked = true
	}
}

func (s *PlaybackService) saveState(state *models.PlaybackState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error serializando estado de reproducción: %v", err)
	}
	return s.store.Set(s.playbackKey(state.UserID, state.VideoID), string(stateJSON), 0)
}

func (s *PlaybackService) playbackKey(userID, videoID string) string {
	return fmt.Sprintf("%s%s:%s", playbackKeyPrefix, userID, videoID)
}
