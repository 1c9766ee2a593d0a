package chatcore

// ResponseStatus is the terminal status reported by response.completed.
type ResponseStatus string

const ResponseCompleted ResponseStatus = "completed"

// Response is the aggregate of every completed item of one generation.
type Response struct {
	ID     string         `json:"id"`
	Status ResponseStatus `json:"status"`
	Model  string         `json:"model,omitempty"`
	Output []OutputItem   `json:"output"`
}

// OutputText returns the text of all message items.
func (r *Response) OutputText() string {
	if r == nil {
		return ""
	}
	var text string
	for _, item := range r.Output {
		if item.Type == ItemMessage {
			text += item.Text()
		}
	}
	return text
}

// ReasoningText returns the text of all reasoning items.
func (r *Response) ReasoningText() string {
	if r == nil {
		return ""
	}
	var text string
	for _, item := range r.Output {
		if item.Type == ItemReasoning {
			text += item.Text()
		}
	}
	return text
}
