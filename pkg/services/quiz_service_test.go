package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/storage"
	"github.com/stretchr/testify/require"
)

const testVideoID = "video-onboarding"

// buildQuestions genera n preguntas de 4 opciones; la opción "b" es la correcta
func buildQuestions(n int) []models.Question {
	questions := make([]models.Question, n)
	for i := 0; i < n; i++ {
		questions[i] = models.Question{
			ID:       fmt.Sprintf("q%d", i+1),
			VideoID:  testVideoID,
			Question: fmt.Sprintf("Pregunta %d", i+1),
			Options: []models.Option{
				{ID: "a", Text: "Opción A"},
				{ID: "b", Text: "Opción B", IsCorrect: true},
				{ID: "c", Text: "Opción C"},
				{ID: "d", Text: "Opción D"},
			},
		}
	}
	return questions
}

func seedQuestions(t *testing.T, store storage.Store, questions []models.Question) {
	t.Helper()
	for _, q := range questions {
		questionJSON, err := json.Marshal(q)
		require.NoError(t, err)
		require.NoError(t, store.Set(questionKeyPrefix+q.ID, string(questionJSON), 0))
		require.NoError(t, store.PushToList(videoQuestionsKey+q.VideoID, q.ID))
		require.NoError(t, store.AddToSet(videoCatalogKey, q.VideoID))
	}
}

func newQuizFixture(t *testing.T, questions []models.Question) (*QuizService, *models.CurrentUser) {
	t.Helper()
	store := storage.NewMemoryStore()
	seedQuestions(t, store, questions)
	quizService := NewQuizService(store, NewQuestionService(store), 70)
	user := &models.CurrentUser{ID: "user-1", Name: "Ana", Role: "candidate"}
	return quizService, user
}

// answerAndAdvance responde la pregunta actual con la opción dada y avanza
func answerAndAdvance(t *testing.T, svc *QuizService, session *models.QuizSession, optionID string) (*models.QuizSession, bool) {
	t.Helper()
	current, _, err := svc.CurrentQuestion(session)
	require.NoError(t, err)
	_, err = svc.SelectOption(session.ID, current.ID, optionID)
	require.NoError(t, err)
	updated, submitted, err := svc.GoNext(session.ID)
	require.NoError(t, err)
	return updated, submitted
}

func TestComputeScoreFormula(t *testing.T) {
	questions := buildQuestions(4)

	cases := []struct {
		name          string
		answers       map[string]string
		expectedScore int
		expectedHits  int
	}{
		{"todas correctas", map[string]string{"q1": "b", "q2": "b", "q3": "b", "q4": "b"}, 100, 4},
		{"tres de cuatro", map[string]string{"q1": "b", "q2": "b", "q3": "b", "q4": "a"}, 75, 3},
		{"mitad", map[string]string{"q1": "b", "q2": "b", "q3": "a", "q4": "c"}, 50, 2},
		{"sin respuestas", map[string]string{}, 0, 0},
		{"sin respuesta cuenta incorrecta", map[string]string{"q1": "b"}, 25, 1},
		{"todas incorrectas", map[string]string{"q1": "a", "q2": "c", "q3": "d", "q4": "a"}, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, correct := computeScore(questions, tc.answers)
			require.Equal(t, tc.expectedScore, score)
			require.Equal(t, tc.expectedHits, correct)
			require.GreaterOrEqual(t, score, 0)
			require.LessOrEqual(t, score, 100)
		})
	}
}

func TestComputeScoreRounding(t *testing.T) {
	// 1 de 3 correctas: round(33.33) = 33; 2 de 3: round(66.66) = 67
	questions := buildQuestions(3)

	score, _ := computeScore(questions, map[string]string{"q1": "b"})
	require.Equal(t, 33, score)

	score, _ = computeScore(questions, map[string]string{"q1": "b", "q2": "b"})
	require.Equal(t, 67, score)
}

func TestQuizPassScenario(t *testing.T) {
	// 4 preguntas, umbral 70: 3 correctas y 1 incorrecta → 75, aprobado
	svc, user := newQuizFixture(t, buildQuestions(4))

	session, total, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, 0, session.CurrentIndex)
	require.False(t, session.Submitted)

	session, submitted := answerAndAdvance(t, svc, session, "b")
	require.False(t, submitted)
	session, submitted = answerAndAdvance(t, svc, session, "b")
	require.False(t, submitted)
	session, submitted = answerAndAdvance(t, svc, session, "b")
	require.False(t, submitted)
	session, submitted = answerAndAdvance(t, svc, session, "a")
	require.True(t, submitted)

	require.True(t, session.Submitted)
	require.Equal(t, 75, session.Score)
	require.True(t, session.Passed)
	require.NotNil(t, session.SubmittedAt)
}

func TestQuizFailScenario(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(4))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	session, _ = answerAndAdvance(t, svc, session, "b")
	session, _ = answerAndAdvance(t, svc, session, "a")
	session, _ = answerAndAdvance(t, svc, session, "a")
	session, submitted := answerAndAdvance(t, svc, session, "a")

	require.True(t, submitted)
	require.Equal(t, 25, session.Score)
	require.False(t, session.Passed)
}

func TestStartSessionWithoutQuestions(t *testing.T) {
	svc, user := newQuizFixture(t, nil)

	session, _, err := svc.StartSession(user, "video-sin-preguntas")
	require.ErrorIs(t, err, ErrNoQuestions)
	require.Nil(t, session)
}

func TestStartSessionResumesActive(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(2))

	first, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	second, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestSelectOptionOverwrites(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(2))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	_, err = svc.SelectOption(session.ID, "q1", "a")
	require.NoError(t, err)
	updated, err := svc.SelectOption(session.ID, "q1", "b")
	require.NoError(t, err)
	require.Equal(t, "b", updated.Answers["q1"])
	require.Len(t, updated.Answers, 1)
}

func TestSelectOptionRejectsWrongQuestion(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(3))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	// q2 no es la pregunta actual
	_, err = svc.SelectOption(session.ID, "q2", "b")
	require.Error(t, err)

	// opción inexistente
	_, err = svc.SelectOption(session.ID, "q1", "z")
	require.Error(t, err)
}

func TestGoNextRequiresAnswer(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(2))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	_, _, err = svc.GoNext(session.ID)
	require.ErrorIs(t, err, ErrAnswerRequired)
}

func TestGoPreviousFloorsAtZero(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(3))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	updated, err := svc.GoPrevious(session.ID)
	require.NoError(t, err)
	require.Equal(t, 0, updated.CurrentIndex)

	// avanzar y volver conserva la respuesta registrada
	updated, _ = answerAndAdvance(t, svc, updated, "b")
	require.Equal(t, 1, updated.CurrentIndex)

	updated, err = svc.GoPrevious(session.ID)
	require.NoError(t, err)
	require.Equal(t, 0, updated.CurrentIndex)
	require.Equal(t, "b", updated.Answers["q1"])
}

func TestSubmitHappensExactlyOnce(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(1))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	_, err = svc.SelectOption(session.ID, "q1", "b")
	require.NoError(t, err)

	first, submitted, err := svc.GoNext(session.ID)
	require.NoError(t, err)
	require.True(t, submitted)
	require.Equal(t, 100, first.Score)

	// Reinvocar no tiene efecto: el cerrojo ya está cerrado
	second, submitted, err := svc.GoNext(session.ID)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.False(t, submitted)
	require.Equal(t, first.Score, second.Score)
	require.True(t, second.Submitted)
}

func TestConcurrentNextSubmitsOnce(t *testing.T) {
	// Dos peticiones next simultáneas en la última pregunta: solo una cierra
	// el cerrojo de envío, la otra ve el quiz ya enviado
	svc, user := newQuizFixture(t, buildQuestions(1))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)
	_, err = svc.SelectOption(session.ID, "q1", "b")
	require.NoError(t, err)

	const attempts = 8
	results := make(chan bool, attempts)
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, submitted, err := svc.GoNext(session.ID)
			results <- submitted
			errs <- err
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	submittedCount := 0
	for submitted := range results {
		if submitted {
			submittedCount++
		}
	}
	require.Equal(t, 1, submittedCount)

	alreadySubmitted := 0
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrAlreadySubmitted)
			alreadySubmitted++
		}
	}
	require.Equal(t, attempts-1, alreadySubmitted)
}

func TestSubmittedSessionIsImmutable(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(1))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)
	_, err = svc.SelectOption(session.ID, "q1", "a")
	require.NoError(t, err)
	_, _, err = svc.GoNext(session.ID)
	require.NoError(t, err)

	// selectOption es no-op tras el envío
	_, err = svc.SelectOption(session.ID, "q1", "b")
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	// el idioma queda bloqueado tras el envío
	_, err = svc.SetLanguage(session.ID, models.LanguageHindi)
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	// goPrevious también queda bloqueado
	_, err = svc.GoPrevious(session.ID)
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	final, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	require.Equal(t, "a", final.Answers["q1"])
	require.Equal(t, models.LanguageEnglish, final.Language)
}

func TestSetLanguage(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(2))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	updated, err := svc.SetLanguage(session.ID, models.LanguageHindi)
	require.NoError(t, err)
	require.Equal(t, models.LanguageHindi, updated.Language)

	_, err = svc.SetLanguage(session.ID, "fr")
	require.Error(t, err)
}

func TestRetakeCreatesFreshSession(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(1))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	// Repetir antes de enviar no está permitido
	_, _, err = svc.Retake(user, session.ID)
	require.ErrorIs(t, err, ErrNotSubmitted)

	_, err = svc.SelectOption(session.ID, "q1", "a")
	require.NoError(t, err)
	_, _, err = svc.GoNext(session.ID)
	require.NoError(t, err)

	fresh, total, err := svc.Retake(user, session.ID)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NotEqual(t, session.ID, fresh.ID)
	require.Equal(t, 0, fresh.CurrentIndex)
	require.Empty(t, fresh.Answers)
	require.False(t, fresh.Submitted)

	// El intento anterior queda intacto
	previous, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	require.True(t, previous.Submitted)
	require.Equal(t, 0, previous.Score)
}

func TestResultsBreakdown(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(3))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)

	// Resultados antes del envío no disponibles
	_, err = svc.Results(session.ID)
	require.ErrorIs(t, err, ErrNotSubmitted)

	session, _ = answerAndAdvance(t, svc, session, "b")
	session, _ = answerAndAdvance(t, svc, session, "c")
	_, submitted := answerAndAdvance(t, svc, session, "b")
	require.True(t, submitted)

	results, err := svc.Results(session.ID)
	require.NoError(t, err)
	require.Equal(t, 67, results.Score)
	require.False(t, results.Passed)
	require.Equal(t, 2, results.CorrectAnswers)
	require.Equal(t, 3, results.TotalQuestions)
	require.Equal(t, 70, results.PassingScore)
	require.Len(t, results.Breakdown, 3)

	require.True(t, results.Breakdown[0].Correct)
	require.Equal(t, "b", results.Breakdown[0].CorrectOption)
	require.False(t, results.Breakdown[1].Correct)
	require.Equal(t, "c", results.Breakdown[1].SelectedOption)
	require.True(t, results.Breakdown[2].Correct)
}

func TestHistoryListsSubmittedSessions(t *testing.T) {
	svc, user := newQuizFixture(t, buildQuestions(1))

	session, _, err := svc.StartSession(user, testVideoID)
	require.NoError(t, err)
	_, err = svc.SelectOption(session.ID, "q1", "b")
	require.NoError(t, err)
	_, _, err = svc.GoNext(session.ID)
	require.NoError(t, err)

	fresh, _, err := svc.Retake(user, session.ID)
	require.NoError(t, err)
	_, err = svc.SelectOption(fresh.ID, "q1", "a")
	require.NoError(t, err)
	_, _, err = svc.GoNext(fresh.ID)
	require.NoError(t, err)

	history, err := svc.GetHistory(user)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, entry := range history {
		require.True(t, entry.Submitted)
	}
}
