package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/backsoul/training/pkg/handlers"
	"github.com/backsoul/training/pkg/redis"
	"github.com/backsoul/training/pkg/services"
	"github.com/backsoul/training/pkg/websocket"
	"github.com/valyala/fasthttp"
)

var (
	redisClient      *redis.RedisClient
	questionService  *services.QuestionService
	quizService      *services.QuizService
	playbackService  *services.PlaybackService
	translateService *services.TranslateService
	profileService   *services.ProfileService
	questionHandler  *handlers.QuestionHandler
	quizHandler      *handlers.QuizHandler
	playbackHandler  *handlers.PlaybackHandler
	hub              *websocket.Hub
)

func main() {
	// Inicializar Redis
	log.Println("🚀 Iniciando servidor de capacitación")
	initRedis()

	// Inicializar servicios
	initServices()

	// Cargar preguntas al inicio
	loadInitialQuestions()

	// Configurar el servidor
	server := &fasthttp.Server{
		Handler: requestHandler,
		Name:    "Training Server",
	}

	port := getEnv("PORT", "8080")

	log.Println("🎓 Servidor de capacitación iniciado")
	log.Printf("📱 Portal: http://localhost:%s", port)
	log.Printf("🔧 API Health: http://localhost:%s/api/health", port)
	log.Println("🔄 Presiona Ctrl+C para detener el servidor")

	if err := server.ListenAndServe(":" + port); err != nil {
		log.Fatalf("Error al iniciar el servidor: %v", err)
	}
}

func initRedis() {
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")
	redisDB := 0

	log.Printf("🔌 Conectando a Redis en %s...", redisAddr)
	redisClient = redis.NewRedisClient(redisAddr, redisPassword, redisDB)
}

func initServices() {
	log.Println("⚙️  Inicializando servicios...")

	passingScore := getEnvInt("QUIZ_PASSING_SCORE", 70)
	unlockFraction := getEnvFloat("QUIZ_UNLOCK_PERCENT", 0.80)
	translateURL := getEnv("TRANSLATE_URL", "https://libretranslate.de/translate")

	questionService = services.NewQuestionService(redisClient)
	quizService = services.NewQuizService(redisClient, questionService, passingScore)
	playbackService = services.NewPlaybackService(redisClient, unlockFraction)
	translateService = services.NewTranslateService(translateURL, redisClient)
	profileService = services.NewProfileService(redisClient)

	// Inicializar WebSocket Hub
	hub = websocket.NewHub()
	go hub.Run()

	// Inicializar handlers
	questionHandler = handlers.NewQuestionHandler(questionService, questionsFile())
	quizHandler = handlers.NewQuizHandler(quizService, playbackService, translateService, hub)
	playbackHandler = handlers.NewPlaybackHandler(playbackService, hub)
}

func questionsFile() string {
	return getEnv("QUESTIONS_FILE", "questions.json")
}

func loadInitialQuestions() {
	log.Println("📚 Cargando preguntas iniciales...")

	if err := questionService.LoadQuestionsFromFile(questionsFile()); err != nil {
		log.Printf("⚠️ Error cargando preguntas iniciales: %v", err)
		log.Println("💡 El servidor continuará funcionando. Puedes cargar preguntas usando POST /api/questions/reload")
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	// Log de la petición
	log.Printf("📡 %s %s", method, path)

	// Configurar headers de respuesta
	ctx.Response.Header.Set("Server", "Training-FastHTTP/1.0")
	ctx.Response.Header.Set("Cache-Control", "no-cache")

	// Headers CORS para desarrollo
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	// Manejar preflight requests
	if method == "OPTIONS" {
		ctx.SetStatusCode(fasthttp.StatusOK)
		return
	}

	// Rutas públicas
	switch path {
	case "/":
		serveFile(ctx, "index.html")
		return
	case "/admin":
		serveFile(ctx, "admin.html")
		return
	case "/favicon.ico":
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("🎓")
		return
	case "/api/health":
		questionHandler.HealthCheck(ctx)
		return
	}

	// Todo lo demás requiere el contexto de usuario
	if !authenticate(ctx) {
		return
	}

	// Enrutamiento
	switch {
	// API Routes - Questions
	case path == "/api/questions" && method == "GET":
		questionHandler.GetQuestionsForVideo(ctx)
	case path == "/api/questions/metadata" && method == "GET":
		questionHandler.GetQuestionMetadata(ctx)
	case path == "/api/questions/reload" && method == "POST":
		questionHandler.ReloadQuestions(ctx)

	// API Routes - Quiz
	case path == "/api/quiz/sessions" && method == "POST":
		quizHandler.StartQuiz(ctx)
	case path == "/api/quiz/results/history" && method == "GET":
		quizHandler.GetHistory(ctx)

	// WebSocket Route
	case path == "/ws":
		playbackHandler.HandleWebSocket(ctx)

	// API Routes - con parámetros
	case strings.HasPrefix(path, "/api/questions/") && method == "GET":
		// Manejar /api/questions/{id}
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[1] == "api" && parts[2] == "questions" {
			ctx.SetUserValue("id", parts[3])
			questionHandler.GetQuestion(ctx)
		} else {
			serve404(ctx)
		}
	case strings.HasPrefix(path, "/api/quiz/sessions/"):
		handleQuizSessionRoutes(ctx, path, method)
	case strings.HasPrefix(path, "/api/trainings/"):
		handlePlaybackRoutes(ctx, path, method)

	default:
		serve404(ctx)
	}
}

// authenticate resuelve el token Bearer a un CurrentUser inmutable y lo deja
// en el contexto de la petición. Responde 401 si el token no es válido.
func authenticate(ctx *fasthttp.RequestCtx) bool {
	token := strings.TrimPrefix(string(ctx.Request.Header.Peek("Authorization")), "Bearer ")
	if token == "" {
		// Los clientes WebSocket no pueden fijar headers: aceptar ?token=
		token = string(ctx.QueryArgs().Peek("token"))
	}

	user, err := profileService.Authenticate(token)
	if err != nil {
		ctx.Response.Header.Set("Content-Type", "application/json")
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString(`{"success": false, "error": "Sesión no válida. Inicia sesión nuevamente."}`)
		return false
	}

	ctx.SetUserValue("user", user)
	return true
}

func handleQuizSessionRoutes(ctx *fasthttp.RequestCtx, path, method string) {
	parts := strings.Split(path, "/")

	// /api/quiz/sessions/{id}
	if len(parts) == 5 && method == "GET" {
		ctx.SetUserValue("id", parts[4])
		quizHandler.GetSession(ctx)
		return
	}

	// /api/quiz/sessions/{id}/{action}
	if len(parts) == 6 {
		ctx.SetUserValue("id", parts[4])

		switch {
		case parts[5] == "results" && method == "GET":
			quizHandler.GetResults(ctx)
		case parts[5] == "answer" && method == "POST":
			quizHandler.SelectAnswer(ctx)
		case parts[5] == "next" && method == "POST":
			quizHandler.Next(ctx)
		case parts[5] == "previous" && method == "POST":
			quizHandler.Previous(ctx)
		case parts[5] == "language" && method == "POST":
			quizHandler.SetLanguage(ctx)
		case parts[5] == "retake" && method == "POST":
			quizHandler.Retake(ctx)
		default:
			serve404(ctx)
		}
		return
	}

	serve404(ctx)
}

func handlePlaybackRoutes(ctx *fasthttp.RequestCtx, path, method string) {
	parts := strings.Split(path, "/")

	// /api/trainings/{videoId}/playback
	if len(parts) == 5 && parts[4] == "playback" && method == "GET" {
		ctx.SetUserValue("videoId", parts[3])
		playbackHandler.GetPlayback(ctx)
		return
	}

	// /api/trainings/{videoId}/playback/{event}
	if len(parts) == 6 && parts[4] == "playback" && method == "POST" {
		ctx.SetUserValue("videoId", parts[3])

		switch parts[5] {
		case "start":
			playbackHandler.StartPlayback(ctx)
		case "time":
			playbackHandler.TimeUpdate(ctx)
		case "seek":
			playbackHandler.Seek(ctx)
		case "rate":
			playbackHandler.RateChange(ctx)
		case "ended":
			playbackHandler.Ended(ctx)
		case "toggle":
			playbackHandler.Toggle(ctx)
		default:
			serve404(ctx)
		}
		return
	}

	serve404(ctx)
}

func serveFile(ctx *fasthttp.RequestCtx, filename string) {
	filePath := filepath.Join(".", filename)

	// Verificar si el archivo existe
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBodyString(`
			<!DOCTYPE html>
			<html>
			<head><title>Archivo no encontrado</title></head>
			<body>
				<h1>⚠️ Archivo no encontrado</h1>
				<p>El archivo <strong>` + filename + `</strong> no existe en el servidor.</p>
			</body>
			</html>
		`)
		return
	}

	if filepath.Ext(filename) == ".html" {
		ctx.SetContentType("text/html; charset=utf-8")
	}

	fasthttp.ServeFile(ctx, filePath)

	log.Printf("✅ Archivo servido: %s", filename)
}

func serve404(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBodyString(`
		<!DOCTYPE html>
		<html>
		<head><title>404 - Página no encontrada</title></head>
		<body>
			<h1>🎓 404 - Página no encontrada</h1>
			<p>La página que buscas no existe en este servidor.</p>
			<div class="api-info">
				<h3>🔧 Endpoints API disponibles:</h3>
				<h4>📊 Preguntas:</h4>
				<div class="endpoint">GET /api/health</div>
				<div class="endpoint">GET /api/questions?videoId={videoId}</div>
				<div class="endpoint">GET /api/questions/{id}</div>
				<div class="endpoint">GET /api/questions/metadata</div>
				<div class="endpoint">POST /api/questions/reload</div>
				<h4>🎬 Reproducción:</h4>
				<div class="endpoint">GET /api/trainings/{videoId}/playback</div>
				<div class="endpoint">POST /api/trainings/{videoId}/playback/start</div>
				<div class="endpoint">POST /api/trainings/{videoId}/playback/time</div>
				<div class="endpoint">POST /api/trainings/{videoId}/playback/seek</div>
				<div class="endpoint">POST /api/trainings/{videoId}/playback/rate</div>
				<div class="endpoint">POST /api/trainings/{videoId}/playback/ended</div>
				<div class="endpoint">POST /api/trainings/{videoId}/playback/toggle</div>
				<h4>📝 Quiz:</h4>
				<div class="endpoint">POST /api/quiz/sessions</div>
				<div class="endpoint">GET /api/quiz/sessions/{id}</div>
				<div class="endpoint">POST /api/quiz/sessions/{id}/answer</div>
				<div class="endpoint">POST /api/quiz/sessions/{id}/next</div>
				<div class="endpoint">POST /api/quiz/sessions/{id}/previous</div>
				<div class="endpoint">POST /api/quiz/sessions/{id}/language</div>
				<div class="endpoint">POST /api/quiz/sessions/{id}/retake</div>
				<div class="endpoint">GET /api/quiz/sessions/{id}/results</div>
				<div class="endpoint">GET /api/quiz/results/history</div>
			</div>
		</body>
		</html>
	`)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("⚠️ Valor inválido para %s: %s, usando %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		log.Printf("⚠️ Valor inválido para %s: %s, usando %.2f", key, value, defaultValue)
	}
	return defaultValue
}
