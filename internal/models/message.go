package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of the chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Exchange is a completed question and answer pair.
type Exchange struct {
	Question string
	Answer   string
}

// Messages expands the exchange into its user and assistant messages.
func (e Exchange) Messages() []Message {
	return []Message{
		{Role: RoleUser, Content: e.Question},
		{Role: RoleAssistant, Content: e.Answer},
	}
}
