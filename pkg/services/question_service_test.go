package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/backsoul/training/pkg/storage"
	"github.com/stretchr/testify/require"
)

const questionsFixture = `{
	"questions": [
		{
			"id": "q1",
			"videoId": "video-onboarding",
			"question": "First valid question?",
			"options": [
				{"id": "a", "text": "No", "is_correct": false},
				{"id": "b", "text": "Yes", "is_correct": true}
			]
		},
		{
			"id": "q2",
			"videoId": "video-onboarding",
			"question": "Question without correct option",
			"options": [
				{"id": "a", "text": "No", "is_correct": false},
				{"id": "b", "text": "Also no", "is_correct": false}
			]
		},
		{
			"id": "q3",
			"videoId": "video-onboarding",
			"question": "Question with two correct options",
			"options": [
				{"id": "a", "text": "Yes", "is_correct": true},
				{"id": "b", "text": "Also yes", "is_correct": true}
			]
		},
		{
			"id": "q4",
			"videoId": "video-onboarding",
			"question": "Question with duplicate option ids",
			"options": [
				{"id": "a", "text": "One", "is_correct": true},
				{"id": "a", "text": "Two", "is_correct": false}
			]
		},
		{
			"id": "q5",
			"videoId": "video-onboarding",
			"question": "Second valid question?",
			"options": [
				{"id": "a", "text": "Yes", "is_correct": true},
				{"id": "b", "text": "No", "is_correct": false}
			]
		},
		{
			"id": "q6",
			"videoId": "video-advanced",
			"question": "Question for another video?",
			"options": [
				{"id": "a", "text": "Yes", "is_correct": true},
				{"id": "b", "text": "No", "is_correct": false}
			]
		}
	],
	"metadata": {
		"totalQuestions": 6,
		"version": "1.0",
		"description": "Fixture de pruebas"
	}
}`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQuestionsSkipsMalformed(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewQuestionService(store)

	require.NoError(t, svc.LoadQuestionsFromFile(writeFixture(t, questionsFixture)))

	// Solo las preguntas válidas sobreviven, en el orden del archivo
	questions, err := svc.GetQuestionsForVideo("video-onboarding")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Equal(t, "q1", questions[0].ID)
	require.Equal(t, "q5", questions[1].ID)

	// Las malformadas no quedan accesibles
	_, err = svc.GetQuestion("q2")
	require.Error(t, err)
	_, err = svc.GetQuestion("q3")
	require.Error(t, err)
	_, err = svc.GetQuestion("q4")
	require.Error(t, err)
}

func TestQuestionsIndexedPerVideo(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewQuestionService(store)

	require.NoError(t, svc.LoadQuestionsFromFile(writeFixture(t, questionsFixture)))

	advanced, err := svc.GetQuestionsForVideo("video-advanced")
	require.NoError(t, err)
	require.Len(t, advanced, 1)
	require.Equal(t, "q6", advanced[0].ID)

	count, err := svc.GetQuestionCount("video-onboarding")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	empty, err := svc.GetQuestionsForVideo("video-sin-preguntas")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestReloadReplacesCatalog(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewQuestionService(store)

	require.NoError(t, svc.LoadQuestionsFromFile(writeFixture(t, questionsFixture)))

	replacement := `{
		"questions": [
			{
				"id": "nq1",
				"videoId": "video-onboarding",
				"question": "Replacement question?",
				"options": [
					{"id": "a", "text": "Yes", "is_correct": true},
					{"id": "b", "text": "No", "is_correct": false}
				]
			}
		],
		"metadata": {"totalQuestions": 1, "version": "2.0"}
	}`

	require.NoError(t, svc.ReloadQuestions(writeFixture(t, replacement)))

	questions, err := svc.GetQuestionsForVideo("video-onboarding")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Equal(t, "nq1", questions[0].ID)

	_, err = svc.GetQuestion("q1")
	require.Error(t, err)
}

func TestLoadQuestionsMissingFile(t *testing.T) {
	svc := NewQuestionService(storage.NewMemoryStore())
	require.Error(t, svc.LoadQuestionsFromFile("/no/existe/questions.json"))
}

func TestQuestionMetadata(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewQuestionService(store)

	require.NoError(t, svc.LoadQuestionsFromFile(writeFixture(t, questionsFixture)))

	metadata, err := svc.GetQuestionMetadata()
	require.NoError(t, err)
	require.Equal(t, "1.0", metadata["version"])
}
