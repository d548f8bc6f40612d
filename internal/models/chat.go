package models

// Chunk is an immutable window of document text handed to the retrieval index.
type Chunk struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Turn is one question/answer pair of the conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Err      bool   `json:"error,omitempty"`
}
