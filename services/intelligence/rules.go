package intelligence

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"tably/models"
)

// RulePlanner is a deterministic keyword planner used when no Gemini
// key is configured, and in tests. It covers the happy paths of the
// conversation well enough to exercise the whole booking flow offline.
type RulePlanner struct{}

// NewRulePlanner creates the fallback planner.
func NewRulePlanner() *RulePlanner {
	return &RulePlanner{}
}

var (
	slotKeyRe    = regexp.MustCompile(`[A-Za-z0-9_-]+\|[A-Za-z0-9_-]+\|\d{4}-\d{2}-\d{2}\|\d{2}:\d{2}`)
	dateRe       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	partyRe      = regexp.MustCompile(`(?:party of|table for|for)\s+(\d+)`)
	uuidRe       = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	restaurantRe = regexp.MustCompile(`(?:at|restaurant)\s+([a-z0-9][a-z0-9-]{2,})`)
	yesWords     = []string{"yes", "yep", "sure", "confirm", "go ahead", "please do", "ok", "okay"}
	noWords      = []string{"no", "nope", "don't", "decline", "nevermind", "never mind", "stop", "changed my mind"}
	cuisineList  = []string{"italian", "japanese", "indian", "chinese", "thai", "mexican", "french"}
	dietWords    = []string{"vegetarian", "vegan", "halal", "kosher", "gluten-free"}
)

func (p *RulePlanner) Decide(_ context.Context, sess *models.ConversationSession, _ []models.ToolSpec) (*models.PlannerDecision, error) {
	msg := strings.ToLower(lastUserMessage(sess))

	if sess.Pending != nil {
		if containsAny(msg, noWords) {
			return &models.PlannerDecision{Kind: models.DecideDecline}, nil
		}
		if containsAny(msg, yesWords) {
			return &models.PlannerDecision{Kind: models.DecideConfirm}, nil
		}
		return &models.PlannerDecision{
			Kind:  models.DecideReply,
			Reply: "Should I go ahead? Please answer yes or no.",
		}, nil
	}

	if key := slotKeyRe.FindString(msg); key != "" && containsAny(msg, []string{"book", "reserve", "take"}) {
		return toolCall("make_reservation", map[string]any{
			"slot_key":   key,
			"party_size": partySize(msg),
		})
	}

	if strings.Contains(msg, "cancel") {
		if id := uuidRe.FindString(msg); id != "" {
			return toolCall("cancel_reservation", map[string]any{"reservation_id": id})
		}
		return &models.PlannerDecision{
			Kind:  models.DecideReply,
			Reply: "Which reservation should I cancel? You can ask for your reservations first.",
		}, nil
	}

	if containsAny(msg, []string{"my reservation", "my booking"}) {
		return toolCall("get_user_reservations", map[string]any{})
	}

	if containsAny(msg, []string{"available", "availability", "table"}) {
		date := dateRe.FindString(msg)
		rest := restaurantID(msg)
		if date != "" && rest != "" {
			return toolCall("check_availability", map[string]any{
				"restaurant_id": rest,
				"date":          date,
				"party_size":    partySize(msg),
			})
		}
		return &models.PlannerDecision{
			Kind:  models.DecideReply,
			Reply: "Tell me the restaurant, the date (YYYY-MM-DD) and the party size.",
		}, nil
	}

	if containsAny(msg, []string{"recommend", "suggest"}) {
		args := map[string]any{}
		if c := cuisineIn(msg); c != "" {
			args["cuisine"] = c
		}
		return toolCall("get_recommendations", args)
	}

	if containsAny(msg, dietWords) && containsAny(msg, []string{"i'm", "i am", "prefer", "remember"}) {
		var dietary []string
		for _, d := range dietWords {
			if strings.Contains(msg, d) {
				dietary = append(dietary, d)
			}
		}
		return toolCall("update_user_preferences", map[string]any{"dietary": dietary})
	}

	if containsAny(msg, []string{"search", "find", "looking for"}) {
		args := map[string]any{}
		if c := cuisineIn(msg); c != "" {
			args["cuisine"] = c
		}
		return toolCall("search_restaurants", args)
	}

	return &models.PlannerDecision{
		Kind:  models.DecideReply,
		Reply: "I can find restaurants, check table availability, book and cancel reservations. What would you like?",
	}, nil
}

func toolCall(name string, args map[string]any) (*models.PlannerDecision, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return &models.PlannerDecision{
		Kind: models.DecideToolCall,
		Call: &models.ToolCall{Name: name, Args: raw},
	}, nil
}

func lastUserMessage(sess *models.ConversationSession) string {
	for i := len(sess.History) - 1; i >= 0; i-- {
		if sess.History[i].Role == models.RoleUser {
			return sess.History[i].Content
		}
	}
	return ""
}

func containsAny(msg string, words []string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func partySize(msg string) int {
	if m := partyRe.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 2
}

func restaurantID(msg string) string {
	if m := restaurantRe.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return ""
}

func cuisineIn(msg string) string {
	for _, c := range cuisineList {
		if strings.Contains(msg, c) {
			return c
		}
	}
	return ""
}
