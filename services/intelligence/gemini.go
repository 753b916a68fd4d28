package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tably/models"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const geminiModel = "models/gemini-1.5-pro"

const systemPrompt = `You are a restaurant booking assistant. You help the user find
restaurants, check table availability and manage reservations through the
provided tools. Always check availability before booking. Slots are
identified by the slot keys returned from check_availability; never invent
one. When a booking or cancellation is pending confirmation, call
confirm_booking or decline_booking according to the user's answer, and
nothing else. Keep replies short and concrete.`

// GeminiPlanner drives the conversation with Gemini function calling.
type GeminiPlanner struct {
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewGeminiPlanner creates a planner bound to the Gemini API.
func NewGeminiPlanner(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiPlanner, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(geminiModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	return &GeminiPlanner{model: model, logger: logger}, nil
}

// Decide sends the conversation and tool declarations to the model and
// maps its answer onto a PlannerDecision.
func (g *GeminiPlanner) Decide(ctx context.Context, sess *models.ConversationSession, specs []models.ToolSpec) (*models.PlannerDecision, error) {
	cs, last, err := g.chatFor(sess, specs)
	if err != nil {
		return nil, err
	}

	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			return g.decisionFromCall(sess, p)
		case genai.Text:
			text.WriteString(string(p))
		}
	}
	return &models.PlannerDecision{Kind: models.DecideReply, Reply: text.String()}, nil
}

// chatFor builds the chat session for one request. Sessions run in
// parallel, so the shared model is never mutated; a shallow copy
// carries the per-request tool set.
func (g *GeminiPlanner) chatFor(sess *models.ConversationSession, specs []models.ToolSpec) (*genai.ChatSession, []genai.Part, error) {
	tools, err := declarations(specs, sess.Pending != nil)
	if err != nil {
		return nil, nil, err
	}
	model := *g.model
	model.Tools = tools

	history, last := contents(sess)
	cs := model.StartChat()
	cs.History = history
	return cs, last, nil
}

func (g *GeminiPlanner) decisionFromCall(sess *models.ConversationSession, call genai.FunctionCall) (*models.PlannerDecision, error) {
	if sess.Pending != nil {
		switch call.Name {
		case ConfirmTool:
			return &models.PlannerDecision{Kind: models.DecideConfirm}, nil
		case DeclineTool:
			return &models.PlannerDecision{Kind: models.DecideDecline}, nil
		}
	}
	args, err := json.Marshal(call.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	g.logger.Debug("planner proposed tool", zap.String("tool", call.Name))
	return &models.PlannerDecision{
		Kind: models.DecideToolCall,
		Call: &models.ToolCall{Name: call.Name, Args: args},
	}, nil
}

// contents converts the session history into chat turns, returning the
// final user message separately for SendMessage. Tool results are
// presented as user-role facts the model can react to.
func contents(sess *models.ConversationSession) ([]*genai.Content, []genai.Part) {
	var history []*genai.Content
	for _, msg := range sess.History {
		role := "user"
		content := msg.Content
		switch msg.Role {
		case models.RoleAssistant:
			role = "model"
		case models.RoleTool:
			content = "[tool result] " + content
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}
	if len(history) == 0 {
		return nil, []genai.Part{genai.Text("")}
	}
	last := history[len(history)-1]
	if last.Role == "user" {
		return history[:len(history)-1], last.Parts
	}
	return history, []genai.Part{genai.Text("")}
}

// declarations converts tool specs into Gemini function declarations.
// While a call is pending confirmation, only the confirm and decline
// pseudo-tools are offered so the model cannot wander off mid-dialog.
func declarations(specs []models.ToolSpec, pending bool) ([]*genai.Tool, error) {
	if pending {
		return []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{Name: ConfirmTool, Description: "The user explicitly approved the pending booking or cancellation"},
				{Name: DeclineTool, Description: "The user rejected or wants to change the pending booking or cancellation"},
			},
		}}, nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		schema, err := toGenaiSchema(spec.Schema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", spec.Name, err)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// jsonSchema is the subset of JSON Schema the tool contracts use.
type jsonSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]*jsonSchema `json:"properties"`
	Items      *jsonSchema            `json:"items"`
	Required   []string               `json:"required"`
	Enum       []string               `json:"enum"`
	Pattern    string                 `json:"pattern"`
}

// toGenaiSchema translates a tool's JSON Schema into the Gemini schema
// type. Constraints Gemini cannot express (patterns, bounds) are
// dropped here and still enforced by registry validation.
func toGenaiSchema(raw string) (*genai.Schema, error) {
	var js jsonSchema
	if err := json.Unmarshal([]byte(raw), &js); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return convertSchema(&js), nil
}

func convertSchema(js *jsonSchema) *genai.Schema {
	if js == nil {
		return nil
	}
	out := &genai.Schema{Required: js.Required, Enum: js.Enum}
	switch js.Type {
	case "object":
		out.Type = genai.TypeObject
		if len(js.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(js.Properties))
			for name, prop := range js.Properties {
				out.Properties[name] = convertSchema(prop)
			}
		}
	case "array":
		out.Type = genai.TypeArray
		out.Items = convertSchema(js.Items)
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	return out
}
