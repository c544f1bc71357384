package dto

type CreateOptionDTO struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type CreateQuestionDTO struct {
	Text        string            `json:"text" binding:"required"`
	Image       string            `json:"image"`
	Explanation string            `json:"explanation" binding:"required"`
	Difficulty  string            `json:"difficulty"`
	CategoryID  string            `json:"category_id" binding:"required"`
	Options     []CreateOptionDTO `json:"options" binding:"required,min=2,dive"`
}

// UpdateQuestionDTO — all fields optional; options are not editable here.
type UpdateQuestionDTO struct {
	Text        *string `json:"text"`
	Image       *string `json:"image"`
	Explanation *string `json:"explanation"`
	Difficulty  *string `json:"difficulty"`
	CategoryID  *string `json:"category_id"`
}
