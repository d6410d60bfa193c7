package transport

// MessageRequest carries one free-text chat message.
type MessageRequest struct {
	Text string `json:"text"`
}

// TimeChoiceRequest picks a time for the open draft: a canonical time,
// "custom" or a typed HH:MM.
type TimeChoiceRequest struct {
	Choice string `json:"choice"`
}

// ActionRequest carries reminder button data such as "done:<id>".
type ActionRequest struct {
	Data string `json:"data"`
}

type ProfileUpdateRequest struct {
	Timezone string `json:"timezone"`
}
