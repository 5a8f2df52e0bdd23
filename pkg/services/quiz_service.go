package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/storage"
	"github.com/google/uuid"
)

// Claves de Redis para sesiones de quiz
const (
	quizSessionKeyPrefix = "training:quiz_session:"
	activeQuizKeyPrefix  = "training:user_quiz:"
	userResultsKeyPrefix = "training:user_results:"
	quizSessionTTL       = 24 * time.Hour
)

// defaultPassingScore umbral de aprobación por defecto (porcentaje)
const defaultPassingScore = 70

// Errores de negocio del motor de quiz
var (
	ErrNoQuestions      = errors.New("no hay preguntas disponibles")
	ErrAlreadySubmitted = errors.New("el quiz ya fue enviado")
	ErrNotSubmitted     = errors.New("el quiz aún no ha sido enviado")
	ErrAnswerRequired   = errors.New("selecciona una opción antes de continuar")
)

// QuizService motor del quiz: lleva al usuario pregunta por pregunta, registra
// una opción seleccionada por pregunta y calcula la calificación al enviar
type QuizService struct {
	store           storage.Store
	questionService *QuestionService
	passingScore    int
	sessionLocks    sync.Map
}

// NewQuizService crea una nueva instancia del motor de quiz
func NewQuizService(store storage.Store, questionService *QuestionService, passingScore int) *QuizService {
	if passingScore <= 0 || passingScore > 100 {
		passingScore = defaultPassingScore
	}
	return &QuizService{
		store:           store,
		questionService: questionService,
		passingScore:    passingScore,
	}
}

// PassingScore devuelve el umbral de aprobación configurado
func (s *QuizService) PassingScore() int {
	return s.passingScore
}

// StartSession inicia un quiz para el usuario sobre un video. Si ya existe
// una sesión sin enviar la reanuda en lugar de duplicarla. Con un conjunto de
// preguntas vacío no se crea sesión ni se llega jamás a la calificación.
func (s *QuizService) StartSession(user *models.CurrentUser, videoID string) (*models.QuizSession, int, error) {
	questions, err := s.questionService.GetQuestionsForVideo(videoID)
	if err != nil {
		return nil, 0, err
	}
	if len(questions) == 0 {
		return nil, 0, ErrNoQuestions
	}

	// Reanudar sesión activa si existe
	if sessionID, err := s.store.Get(s.activeKey(user.ID, videoID)); err == nil {
		session, err := s.GetSession(sessionID)
		if err == nil && !session.Submitted {
			log.Printf("🔄 Usuario %s ya tiene un quiz en curso para %s, continuando...", user.ID, videoID)
			return session, len(questions), nil
		}
	}

	session := &models.QuizSession{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		VideoID:      videoID,
		CurrentIndex: 0,
		Answers:      make(map[string]string),
		Submitted:    false,
		Language:     models.LanguageEnglish,
		StartTime:    time.Now(),
		LastActivity: time.Now(),
	}

	if err := s.saveSession(session); err != nil {
		return nil, 0, fmt.Errorf("error guardando sesión: %v", err)
	}

	if err := s.store.Set(s.activeKey(user.ID, videoID), session.ID, quizSessionTTL); err != nil {
		log.Printf("⚠️ Error registrando sesión activa: %v", err)
	}

	log.Printf("✅ Nuevo quiz iniciado para %s (sesión: %s)", user.ID, session.ID)
	return session, len(questions), nil
}

// GetSession obtiene una sesión por ID
func (s *QuizService) GetSession(sessionID string) (*models.QuizSession, error) {
	sessionJSON, err := s.store.Get(quizSessionKeyPrefix + sessionID)
	if err != nil {
		return nil, fmt.Errorf("sesión no encontrada: %v", err)
	}

	var session models.QuizSession
	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		return nil, fmt.Errorf("error parsing sesión: %v", err)
	}

	return &session, nil
}

// CurrentQuestion obtiene la pregunta que la sesión tiene en pantalla
func (s *QuizService) CurrentQuestion(session *models.QuizSession) (*models.Question, int, error) {
	questions, err := s.questionService.GetQuestionsForVideo(session.VideoID)
	if err != nil {
		return nil, 0, err
	}
	if len(questions) == 0 {
		return nil, 0, ErrNoQuestions
	}
	if session.CurrentIndex < 0 || session.CurrentIndex >= len(questions) {
		return nil, 0, fmt.Errorf("índice de pregunta fuera de rango: %d", session.CurrentIndex)
	}

	question := questions[session.CurrentIndex]
	return &question, len(questions), nil
}

// NextQuestion devuelve la pregunta siguiente a la actual, o nil si la actual
// es la última. Se usa para precargar su traducción.
func (s *QuizService) NextQuestion(session *models.QuizSession) *models.Question {
	questions, err := s.questionService.GetQuestionsForVideo(session.VideoID)
	if err != nil {
		return nil
	}
	next := session.CurrentIndex + 1
	if next >= len(questions) {
		return nil
	}
	question := questions[next]
	return &question
}

// SelectOption registra (o sobrescribe) la respuesta de la pregunta actual.
// Es un no-op rechazado una vez enviado el quiz.
func (s *QuizService) SelectOption(sessionID, questionID, optionID string) (*models.QuizSession, error) {
	defer s.lockSession(sessionID)()

	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Submitted {
		return nil, ErrAlreadySubmitted
	}

	current, _, err := s.CurrentQuestion(session)
	if err != nil {
		return nil, err
	}
	if current.ID != questionID {
		return nil, fmt.Errorf("la pregunta %s no es la pregunta actual", questionID)
	}

	optionExists := false
	for _, opt := range current.Options {
		if opt.ID == optionID {
			optionExists = true
			break
		}
	}
	if !optionExists {
		return nil, fmt.Errorf("la opción %s no pertenece a la pregunta %s", optionID, questionID)
	}

	session.Answers[questionID] = optionID
	session.LastActivity = time.Now()

	if err := s.saveSession(session); err != nil {
		return nil, err
	}

	return session, nil
}

// lockSession serializa las mutaciones de una sesión. El leer-modificar-
// escribir contra el store no es atómico; sin esto dos peticiones next
// concurrentes en la última pregunta podrían enviar el quiz dos veces.
func (s *QuizService) lockSession(sessionID string) func() {
	value, _ := s.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

// GoNext avanza a la siguiente pregunta; en la última dispara el envío.
// Requiere una respuesta registrada para la pregunta actual. Devuelve si
// esta llamada fue la que envió el quiz (sucede exactamente una vez).
func (s *QuizService) GoNext(sessionID string) (*models.QuizSession, bool, error) {
	defer s.lockSession(sessionID)()

	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Submitted {
		return session, false, ErrAlreadySubmitted
	}

	questions, err := s.questionService.GetQuestionsForVideo(session.VideoID)
	if err != nil {
		return nil, false, err
	}
	if len(questions) == 0 {
		return nil, false, ErrNoQuestions
	}

	current := questions[session.CurrentIndex]
	if _, answered := session.Answers[current.ID]; !answered {
		return nil, false, ErrAnswerRequired
	}

	submitted := false
	if session.CurrentIndex < len(questions)-1 {
		session.CurrentIndex++
	} else {
		s.submit(session, questions)
		submitted = true
	}

	session.LastActivity = time.Now()
	if err := s.saveSession(session); err != nil {
		return nil, false, err
	}

	return session, submitted, nil
}

// GoPrevious retrocede una pregunta, con piso en 0. Las respuestas ya
// registradas se conservan.
func (s *QuizService) GoPrevious(sessionID string) (*models.QuizSession, error) {
	defer s.lockSession(sessionID)()

	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Submitted {
		return nil, ErrAlreadySubmitted
	}

	if session.CurrentIndex > 0 {
		session.CurrentIndex--
	}

	session.LastActivity = time.Now()
	if err := s.saveSession(session); err != nil {
		return nil, err
	}

	return session, nil
}

// SetLanguage cambia el idioma de la superposición. Queda bloqueado tras el
// envío del quiz.
func (s *QuizService) SetLanguage(sessionID, language string) (*models.QuizSession, error) {
	defer s.lockSession(sessionID)()

	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Submitted {
		return nil, ErrAlreadySubmitted
	}
	if language != models.LanguageEnglish && language != models.LanguageHindi {
		return nil, fmt.Errorf("idioma no soportado: %s", language)
	}

	session.Language = language
	session.LastActivity = time.Now()

	if err := s.saveSession(session); err != nil {
		return nil, err
	}

	return session, nil
}

// Retake crea una sesión nueva e independiente del intento anterior.
// Solo se permite después de haber enviado el quiz.
func (s *QuizService) Retake(user *models.CurrentUser, sessionID string) (*models.QuizSession, int, error) {
	previous, err := s.GetSession(sessionID)
	if err != nil {
		return nil, 0, err
	}
	if !previous.Submitted {
		return nil, 0, ErrNotSubmitted
	}

	// El puntero de sesión activa ya fue limpiado al enviar; StartSession
	// crea una sesión fresca
	return s.StartSession(user, previous.VideoID)
}

// Results arma los resultados finales con el desglose por pregunta.
// Solo disponible para sesiones enviadas; no muta el estado.
func (s *QuizService) Results(sessionID string) (*models.QuizResults, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Submitted {
		return nil, ErrNotSubmitted
	}

	questions, err := s.questionService.GetQuestionsForVideo(session.VideoID)
	if err != nil {
		return nil, err
	}

	breakdown := make([]models.QuestionResult, 0, len(questions))
	correctCount := 0
	for _, question := range questions {
		selectedID, answered := session.Answers[question.ID]
		correctOption := question.CorrectOption()
		correctID := ""
		if correctOption != nil {
			correctID = correctOption.ID
		}

		correct := answered && correctID != "" && selectedID == correctID
		if correct {
			correctCount++
		}

		breakdown = append(breakdown, models.QuestionResult{
			Question:       question,
			SelectedOption: selectedID,
			CorrectOption:  correctID,
			Answered:       answered,
			Correct:        correct,
		})
	}

	return &models.QuizResults{
		SessionID:      session.ID,
		VideoID:        session.VideoID,
		Score:          session.Score,
		Passed:         session.Passed,
		PassingScore:   s.passingScore,
		CorrectAnswers: correctCount,
		TotalQuestions: len(questions),
		Breakdown:      breakdown,
		SubmittedAt:    session.SubmittedAt,
	}, nil
}

// GetHistory obtiene los quizzes enviados del usuario, el más reciente primero
func (s *QuizService) GetHistory(user *models.CurrentUser) ([]models.QuizSession, error) {
	sessionIDs, err := s.store.GetSetMembers(userResultsKeyPrefix + user.ID)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo historial: %v", err)
	}

	sessions := make([]models.QuizSession, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		session, err := s.GetSession(sessionID)
		if err != nil {
			log.Printf("⚠️ Error obteniendo sesión %s: %v", sessionID, err)
			continue
		}
		sessions = append(sessions, *session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i].SubmittedAt, sessions[j].SubmittedAt
		if a == nil || b == nil {
			return b == nil
		}
		return a.After(*b)
	})

	return sessions, nil
}

// submit califica la sesión y cierra el cerrojo de envío. Las preguntas sin
// respuesta cuentan como incorrectas.
func (s *QuizService) submit(session *models.QuizSession, questions []models.Question) {
	score, _ := computeScore(questions, session.Answers)

	now := time.Now()
	session.Submitted = true
	session.Score = score
	session.Passed = score >= s.passingScore
	session.SubmittedAt = &now

	// La sesión deja de ser la activa del usuario y pasa al historial
	if err := s.store.Delete(s.activeKey(session.UserID, session.VideoID)); err != nil {
		log.Printf("⚠️ Error limpiando sesión activa: %v", err)
	}
	if err := s.store.AddToSet(userResultsKeyPrefix+session.UserID, session.ID); err != nil {
		log.Printf("⚠️ Error guardando resultado en historial: %v", err)
	}

	log.Printf("🎓 Quiz %s enviado: %d%% (aprobado: %v)", session.ID, score, session.Passed)
}

// computeScore calcula round(100 * correctas / total)
func computeScore(questions []models.Question, answers map[string]string) (int, int) {
	if len(questions) == 0 {
		return 0, 0
	}

	correctCount := 0
	for _, question := range questions {
		selectedID, answered := answers[question.ID]
		if !answered {
			continue
		}
		for _, opt := range question.Options {
			if opt.ID == selectedID && opt.IsCorrect {
				correctCount++
				break
			}
		}
	}

	score := int(math.Round(float64(correctCount) / float64(len(questions)) * 100))
	return score, correctCount
}

func (s *QuizService) saveSession(session *models.QuizSession) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("error serializando sesión: %v", err)
	}
	return s.store.Set(quizSessionKeyPrefix+session.ID, string(sessionJSON), quizSessionTTL)
}

func (s *QuizService) activeKey(userID, videoID string) string {
	return fmt.Sprintf("%s%s:%s", activeQuizKeyPrefix, userID, videoID)
}
