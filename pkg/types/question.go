package types

// UserQuestions is the payload of a question dialog raised by the assistant.
type UserQuestions struct {
	Title       string     `json:"title,omitempty"`
	Message     string     `json:"message,omitempty"`
	Questions   []Question `json:"questions"`
	SubmitLabel string     `json:"submitLabel"`
	CancelLabel string     `json:"cancelLabel"`
}

// Question is a single question of a dialog. The question text is its identity.
type Question struct {
	Question    string           `json:"question"`
	Header      string           `json:"header,omitempty"`
	MultiSelect bool             `json:"multiSelect"`
	Options     []QuestionOption `json:"options"`
}

// QuestionOption is an answer that can be picked for a question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}
