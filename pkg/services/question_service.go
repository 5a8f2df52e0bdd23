package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/storage"
)

// Claves de Redis para el catálogo de preguntas
const (
	questionKeyPrefix   = "training:question:"
	videoQuestionsKey   = "training:video_questions:"
	videoCatalogKey     = "training:videos"
	questionMetadataKey = "training:metadata"
)

// QuestionService maneja el catálogo de preguntas de capacitación
type QuestionService struct {
	store storage.Store
}

// NewQuestionService crea una nueva instancia del servicio
func NewQuestionService(store storage.Store) *QuestionService {
	return &QuestionService{
		store: store,
	}
}

// LoadQuestionsFromFile carga las preguntas desde el archivo JSON al almacén.
// Las preguntas malformadas (sin opción correcta, con más de una, con IDs de
// opción duplicados o sin enunciado) se registran y se omiten; el resto del
// archivo se carga igual.
func (s *QuestionService) LoadQuestionsFromFile(filePath string) error {
	log.Printf("📂 Cargando preguntas desde: %s", filePath)

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error leyendo archivo JSON: %v", err)
	}

	var questionsData models.QuestionsData
	if err := json.Unmarshal(jsonData, &questionsData); err != nil {
		return fmt.Errorf("error parsing JSON: %v", err)
	}

	// Limpiar catálogo existente antes de recargar
	if err := s.clearCatalog(); err != nil {
		log.Printf("⚠️ Error limpiando preguntas existentes: %v", err)
	}

	loaded := 0
	for _, question := range questionsData.Questions {
		if err := validateQuestion(question); err != nil {
			log.Printf("⚠️ Pregunta %s omitida: %v", question.ID, err)
			continue
		}
		if err := s.saveQuestion(question); err != nil {
			log.Printf("❌ Error guardando pregunta %s: %v", question.ID, err)
			continue
		}
		loaded++
	}

	// Guardar metadatos
	metadataJSON, _ := json.Marshal(questionsData.Metadata)
	if err := s.store.Set(questionMetadataKey, string(metadataJSON), 0); err != nil {
		log.Printf("⚠️ Error guardando metadatos: %v", err)
	}

	log.Printf("✅ %d preguntas cargadas exitosamente", loaded)
	return nil
}

// validateQuestion rechaza preguntas que romperían la calificación:
// exactamente una opción debe ser correcta y los IDs de opción deben ser únicos
func validateQuestion(q models.Question) error {
	if q.ID == "" {
		return fmt.Errorf("pregunta sin ID")
	}
	if q.Question == "" {
		return fmt.Errorf("pregunta sin enunciado")
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("pregunta sin opciones")
	}

	correctCount := 0
	seen := make(map[string]bool)
	for _, opt := range q.Options {
		if opt.ID == "" {
			return fmt.Errorf("opción sin ID")
		}
		if seen[opt.ID] {
			return fmt.Errorf("ID de opción duplicado: %s", opt.ID)
		}
		seen[opt.ID] = true
		if opt.IsCorrect {
			correctCount++
		}
	}

	if correctCount == 0 {
		return fmt.Errorf("ninguna opción marcada como correcta")
	}
	if correctCount > 1 {
		return fmt.Errorf("%d opciones marcadas como correctas", correctCount)
	}

	return nil
}

// saveQuestion guarda una pregunta y la indexa bajo su video en orden
func (s *QuestionService) saveQuestion(question models.Question) error {
	questionJSON, err := json.Marshal(question)
	if err != nil {
		return fmt.Errorf("error serializing question: %v", err)
	}

	if err := s.store.Set(questionKeyPrefix+question.ID, string(questionJSON), 0); err != nil {
		return err
	}

	if err := s.store.PushToList(videoQuestionsKey+question.VideoID, question.ID); err != nil {
		return err
	}

	return s.store.AddToSet(videoCatalogKey, question.VideoID)
}

// GetQuestion obtiene una pregunta específica por ID
func (s *QuestionService) GetQuestion(id string) (*models.Question, error) {
	questionJSON, err := s.store.Get(questionKeyPrefix + id)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("pregunta %s no encontrada", id)
		}
		return nil, fmt.Errorf("error obteniendo pregunta: %v", err)
	}

	var question models.Question
	if err := json.Unmarshal([]byte(questionJSON), &question); err != nil {
		return nil, fmt.Errorf("error parsing pregunta: %v", err)
	}

	return &question, nil
}

// GetQuestionsForVideo obtiene las preguntas de un video en el orden cargado
func (s *QuestionService) GetQuestionsForVideo(videoID string) ([]models.Question, error) {
	questionIDs, err := s.store.GetList(videoQuestionsKey + videoID)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo preguntas del video %s: %v", videoID, err)
	}

	questions := make([]models.Question, 0, len(questionIDs))
	for _, id := range questionIDs {
		question, err := s.GetQuestion(id)
		if err != nil {
			log.Printf("⚠️ Error obteniendo pregunta %s: %v", id, err)
			continue
		}
		questions = append(questions, *question)
	}

	return questions, nil
}

// GetQuestionCount obtiene el número de preguntas cargadas para un video
func (s *QuestionService) GetQuestionCount(videoID string) (int, error) {
	questionIDs, err := s.store.GetList(videoQuestionsKey + videoID)
	if err != nil {
		return 0, fmt.Errorf("error obteniendo conteo de preguntas: %v", err)
	}
	return len(questionIDs), nil
}

// GetQuestionMetadata obtiene los metadatos del catálogo
func (s *QuestionService) GetQuestionMetadata() (map[string]interface{}, error) {
	metadataJSON, err := s.store.Get(questionMetadataKey)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo metadatos: %v", err)
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return nil, fmt.Errorf("error parsing metadatos: %v", err)
	}

	return metadata, nil
}

// ReloadQuestions recarga las preguntas desde el archivo JSON
func (s *QuestionService) ReloadQuestions(filePath string) error {
	log.Println("🔄 Recargando preguntas...")

	if err := s.LoadQuestionsFromFile(filePath); err != nil {
		return fmt.Errorf("error recargando preguntas: %v", err)
	}

	log.Println("✅ Preguntas recargadas exitosamente")
	return nil
}

// HealthCheck verifica que el almacén esté funcionando
func (s *QuestionService) HealthCheck() error {
	type healthChecker interface {
		HealthCheck() error
	}
	if hc, ok := s.store.(healthChecker); ok {
		if err := hc.HealthCheck(); err != nil {
			return fmt.Errorf("error en health check del almacén: %v", err)
		}
	}
	return nil
}

// clearCatalog elimina las preguntas y los índices por video
func (s *QuestionService) clearCatalog() error {
	videoIDs, err := s.store.GetSetMembers(videoCatalogKey)
	if err != nil {
		return err
	}

	for _, videoID := range videoIDs {
		questionIDs, err := s.store.GetList(videoQuestionsKey + videoID)
		if err == nil {
			for _, id := range questionIDs {
				s.store.Delete(questionKeyPrefix + id)
			}
		}
		s.store.Delete(videoQuestionsKey + videoID)
	}

	return s.store.Delete(videoCatalogKey)
}
