package aitool

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tool identifies one of the AI study tools offered by the platform.
type Tool string

const (
	ToolSummary    Tool = "summary"
	ToolQuiz       Tool = "quiz"
	ToolFlashcards Tool = "flashcards"
	ToolMindMap    Tool = "mindmap"
	ToolChat       Tool = "chat"
)

// MaxInputChars caps the study text sent to the model; longer inputs are
// truncated, matching the PDF-extraction cap in the web client.
const MaxInputChars = 2000

var systemInstructions = map[Tool]string{
	ToolSummary:    "Eres un asistente de estudio especializado en español. Resume el texto proporcionado de manera clara, estructurada y concisa. Usa viñetas, títulos y subtítulos cuando sea apropiado. El resumen debe ser fácil de entender para estudiantes de ESO.",
	ToolQuiz:       "Eres un profesor de ESO que enseña en español. Genera un cuestionario de 5 preguntas de opción múltiple en español. Cada pregunta debe tener 4 opciones, solo una correcta. Mezcla el orden de las opciones. Devuelve SOLO un objeto JSON válido con una propiedad `quiz` que es un array de objetos. Cada objeto debe tener: `question` (string), `options` (array de 4 strings), `correctAnswer` (string exacto de la opción correcta). No incluyas texto adicional, solo el JSON.",
	ToolFlashcards: "Eres un profesor de ESO que crea tarjetas didácticas en español. Genera 5 tarjetas. Devuelve SOLO un objeto JSON válido con una propiedad `cards` que es un array de objetos. Cada objeto debe tener: `question` (string) y `answer` (string). No incluyas texto adicional, solo el JSON.",
	ToolMindMap:    "Eres un profesor de ESO que organiza ideas en español. Genera un mapa mental del texto proporcionado. Devuelve SOLO un objeto JSON válido con una propiedad `root` (string, el concepto central) y una propiedad `branches` que es un array de objetos con `topic` (string) y `subtopics` (array de strings). No incluyas texto adicional, solo el JSON.",
	ToolChat:       "Eres un profesor de ESO experto en todas las asignaturas. Responde de forma clara, sencilla y didáctica. Usa ejemplos, analogías y pasos si es necesario. No uses jerga técnica sin explicarla. Si no sabes la respuesta, di que no puedes ayudar con eso.",
}

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	_, ok := systemInstructions[t]
	return ok
}

// SystemInstruction returns the model system prompt for the tool.
func (t Tool) SystemInstruction() string {
	return systemInstructions[t]
}

// Message is one turn of a chat conversation. Role is "user" or "model".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is a single AI-tool invocation attempt.
type GenerateRequest struct {
	Tool    Tool      `json:"tool"`
	Text    string    `json:"text"`
	History []Message `json:"history,omitempty"`
}

// Validate checks the request contract before any quota or model work.
func (r *GenerateRequest) Validate() error {
	if !r.Tool.Valid() {
		return fmt.Errorf("unknown tool %q", r.Tool)
	}
	if r.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

// TruncatedText returns the input capped at MaxInputChars.
func (r *GenerateRequest) TruncatedText() string {
	runes := []rune(r.Text)
	if len(runes) <= MaxInputChars {
		return r.Text
	}
	return string(runes[:MaxInputChars])
}

// Generation is one successful, recorded model output.
type Generation struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PrincipalID string    `json:"principal_id" db:"principal_id"`
	Tool        Tool      `json:"tool" db:"tool"`
	Prompt      string    `json:"prompt" db:"prompt"`
	Result      string    `json:"result" db:"result"`
	Model       string    `json:"model" db:"model"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
