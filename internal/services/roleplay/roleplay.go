package roleplay

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"langtutor/internal/models"
)

// CustomID selects a user-described scenario.
const CustomID = "custom"

type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Character   string `json:"character"`
	Setting     string `json:"setting"`
}

var scenarios = []Scenario{
	{"restaurant", "Restaurant", "Practice ordering food, asking about ingredients, and making requests at a restaurant", "waiter/waitress", "restaurant"},
	{"directions", "Asking for Directions", "Learn to ask for and understand directions in the city", "local resident", "street"},
	{"party", "Social Party", "Practice casual conversation, introductions, and small talk at a social gathering", "party guest", "party"},
	{"interview", "Job Interview", "Prepare for job interviews with professional conversation practice", "interviewer", "office"},
	{"hotel", "Hotel Check-in", "Practice hotel check-in, asking about amenities, and making requests", "hotel receptionist", "hotel lobby"},
	{"shopping", "Shopping", "Learn to ask about prices, sizes, and make purchases", "shop assistant", "store"},
	{"taxi", "Taking a Taxi", "Practice giving directions and communicating with taxi drivers", "taxi driver", "taxi"},
	{"doctor", "Doctor's Appointment", "Learn medical vocabulary and how to describe symptoms", "doctor", "clinic"},
}

var stopWords = []string{"stop", "stop.", "arrêt", "alto", "halt", "stopp"}

// correctionMarkers are words a tutor reply tends to contain when it is
// correcting the learner rather than continuing the scene.
var correctionMarkers = []string{
	"correct", "should", "try again", "instead",
	"correcto", "deberías", "korrekt", "solltest", "essayer",
}

// Scenarios returns the built-in scenarios in display order.
func Scenarios() []Scenario {
	return slices.Clone(scenarios)
}

// Resolve finds a built-in scenario by id, or builds a custom one when id is
// CustomID and description is set.
func Resolve(id, description string) (Scenario, error) {
	if strings.EqualFold(id, CustomID) {
		description = strings.TrimSpace(description)
		if description == "" {
			return Scenario{}, errors.New("custom scenario needs a description")
		}
		return Scenario{
			ID:          CustomID,
			Name:        description,
			Description: description,
			Character:   "appropriate role",
			Setting:     "relevant location",
		}, nil
	}
	for _, s := range scenarios {
		if strings.EqualFold(s.ID, id) {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q", id)
}

// SystemPrompt sets up the character for a new session.
func SystemPrompt(s Scenario, language string) string {
	return fmt.Sprintf(`You are a %[1]s in a %[2]s.
The user wants to practice %[3]s conversation in this scenario: %[4]s.

IMPORTANT RULES:
1. ONLY speak in %[3]s - never use English
2. Stay in character as a %[1]s
3. Start by introducing yourself with a name and your role
4. Ask an appropriate opening question for this scenario
5. Keep responses conversational and natural
6. If the user makes mistakes, provide the correct version and ask them to try again

Begin the roleplay now by introducing yourself and asking an opening question.`,
		s.Character, s.Setting, language, s.Description)
}

// Opening is the conversation that starts a session.
func Opening(s Scenario, language string) []models.ChatMessage {
	return []models.ChatMessage{{Role: models.RoleSystem, Content: SystemPrompt(s, language)}}
}

// Turn is one learner reply within a running session.
type Turn struct {
	History       []models.ChatMessage `json:"history"`
	Input         string               `json:"input"`
	AwaitingRetry bool                 `json:"awaiting_retry"`
	Expected      string               `json:"expected,omitempty"`
}

// Messages is the conversation sent to the model for t: the history, the
// learner's input and a steering instruction. The history is not modified.
func (t Turn) Messages(s Scenario, language string) []models.ChatMessage {
	var steer string
	if t.AwaitingRetry {
		steer = fmt.Sprintf(`The user was supposed to say: "%s"
They said: "%s"

If their answer is now correct or close enough, continue the conversation normally.
If still incorrect, provide encouragement and the correct answer again, then ask them to try once more.
Remember: ONLY speak in %s.`, t.Expected, t.Input, language)
	} else {
		steer = fmt.Sprintf(`Continue the roleplay as a %s.
Evaluate the user's response. If it's correct and natural, continue the conversation.
If there are significant errors, provide the correct version and ask them to try again.
Remember: ONLY speak in %s.`, s.Character, language)
	}

	out := make([]models.ChatMessage, 0, len(t.History)+2)
	out = append(out, t.History...)
	out = append(out,
		models.ChatMessage{Role: models.RoleUser, Content: t.Input},
		models.ChatMessage{Role: models.RoleSystem, Content: steer},
	)
	return out
}

// IsStop reports whether input ends the session.
func IsStop(input string) bool {
	return slices.Contains(stopWords, strings.ToLower(strings.TrimSpace(input)))
}

// LooksLikeCorrection guesses whether reply asks the learner to try again.
func LooksLikeCorrection(reply string) bool {
	lower := strings.ToLower(reply)
	for _, m := range correctionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
