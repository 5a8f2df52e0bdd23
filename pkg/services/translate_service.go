package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/storage"
	"github.com/valyala/fasthttp"
)

const (
	translationKeyPrefix = "training:translation:"
	translationTTL       = 24 * time.Hour
	translateTimeout     = 8 * time.Second
)

// sourceLanguage idioma original de todas las preguntas
const sourceLanguage = "en"

// TranslateService cliente del servicio de traducción externo. La traducción
// es una superposición no autoritativa: ante cualquier falla se conserva el
// contenido en el idioma original y la navegación nunca se bloquea.
type TranslateService struct {
	endpoint string
	client   *fasthttp.Client
	store    storage.Store
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// NewTranslateService crea una nueva instancia del cliente de traducción
func NewTranslateService(endpoint string, store storage.Store) *TranslateService {
	return &TranslateService{
		endpoint: endpoint,
		client:   &fasthttp.Client{},
		store:    store,
	}
}

// Translate traduce un texto al idioma destino vía HTTP
func (s *TranslateService) Translate(text, targetLang string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: sourceLanguage,
		Target: targetLang,
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("error serializando petición de traducción: %v", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := s.client.DoTimeout(req, resp, translateTimeout); err != nil {
		return "", fmt.Errorf("error llamando al servicio de traducción: %v", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("servicio de traducción respondió %d", resp.StatusCode())
	}

	var result translateResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("error parsing respuesta de traducción: %v", err)
	}
	if result.TranslatedText == "" {
		return "", fmt.Errorf("respuesta de traducción vacía")
	}

	return result.TranslatedText, nil
}

// TranslateQuestion devuelve la vista de la pregunta en el idioma pedido.
// El resultado queda ligado al ID de la pregunta que lo originó (la clave de
// caché lo incluye), así un resultado que llega tarde jamás puede aplicarse
// sobre otra pregunta. Los IDs de opción y la bandera de correcta no cambian.
func (s *TranslateService) TranslateQuestion(question *models.Question, language string) models.QuestionView {
	if language != models.LanguageHindi {
		return question.View(models.LanguageEnglish)
	}

	cacheKey := s.translationKey(language, question.ID)
	if cachedJSON, err := s.store.Get(cacheKey); err == nil {
		var cached models.QuestionView
		if err := json.Unmarshal([]byte(cachedJSON), &cached); err == nil {
			return cached
		}
	}

	translatedPrompt, err := s.Translate(question.Question, language)
	if err != nil {
		log.Printf("⚠️ Error traduciendo pregunta %s, se muestra el original: %v", question.ID, err)
		return question.View(models.LanguageEnglish)
	}

	options := make([]models.OptionView, len(question.Options))
	for i, opt := range question.Options {
		translatedText, err := s.Translate(opt.Text, language)
		if err != nil {
			log.Printf("⚠️ Error traduciendo opción %s, se muestra el original: %v", opt.ID, err)
			return question.View(models.LanguageEnglish)
		}
		options[i] = models.OptionView{ID: opt.ID, Text: translatedText}
	}

	view := models.QuestionView{
		ID:       question.ID,
		Question: translatedPrompt,
		Options:  options,
		Language: language,
	}

	if viewJSON, err := json.Marshal(view); err == nil {
		if err := s.store.Set(cacheKey, string(viewJSON), translationTTL); err != nil {
			log.Printf("⚠️ Error guardando traducción en caché: %v", err)
		}
	}

	return view
}

// PrefetchQuestion precalienta la caché de traducción de una pregunta.
// Pensado para llamarse en una goroutine al navegar; si el usuario ya avanzó
// cuando resuelve, el resultado queda inerte en la ranura de su propia
// pregunta y nunca se aplica a la que esté en pantalla.
func (s *TranslateService) PrefetchQuestion(question *models.Question, language string) {
	if question == nil || language != models.LanguageHindi {
		return
	}
	s.TranslateQuestion(question, language)
}

func (s *TranslateService) translationKey(language, questionID string) string {
	return fmt.Sprintf("%s%s:%s", translationKeyPrefix, language, questionID)
}
