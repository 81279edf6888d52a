package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AITool names one of the generative helpers
type AITool string

const (
	AIToolContent   AITool = "content"
	AIToolPricing   AITool = "pricing"
	AIToolMarketing AITool = "marketing"
	AIToolImage     AITool = "image"
	AIToolVoice     AITool = "voice"
)

// AIGeneration is the audit record of one model call
type AIGeneration struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID      `json:"userId" gorm:"type:uuid;not null;index:idx_ai_generations_user"`
	Tool      AITool         `json:"tool" gorm:"type:varchar(20);not null;index"`
	Model     string         `json:"model" gorm:"type:varchar(100)"`
	Prompt    string         `json:"prompt" gorm:"type:text"`
	Input     datatypes.JSON `json:"input,omitempty" gorm:"type:jsonb"`
	Output    string         `json:"output" gorm:"type:text"`
	LatencyMs int64          `json:"latencyMs"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TableName returns the table name for the AIGeneration model
func (AIGeneration) TableName() string {
	return "ai_generations"
}

// ContentRequest asks for listing copy
type ContentRequest struct {
	ProductName string   `json:"productName" binding:"required"`
	Category    string   `json:"category,omitempty"`
	Materials   string   `json:"materials,omitempty"`
	Region      string   `json:"region,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// ContentResult is generated listing copy
type ContentResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Story       string   `json:"story,omitempty"`
}

// PricingRequest asks for a price suggestion
type PricingRequest struct {
	ProductName  string  `json:"productName" binding:"required"`
	Category     string  `json:"category,omitempty"`
	MaterialCost float64 `json:"materialCost" binding:"gte=0"`
	HoursSpent   float64 `json:"hoursSpent" binding:"gte=0"`
	HourlyRate   float64 `json:"hourlyRate,omitempty"`
	Region       string  `json:"region,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// PricingResult is a price suggestion
type PricingResult struct {
	SuggestedPrice float64 `json:"suggestedPrice"`
	MinPrice       float64 `json:"minPrice"`
	MaxPrice       float64 `json:"maxPrice"`
	CostFloor      float64 `json:"costFloor"`
	Currency       string  `json:"currency"`
	Rationale      string  `json:"rationale"`
}

// MarketingRequest asks for promotional copy
type MarketingRequest struct {
	ProductName string `json:"productName" binding:"required"`
	Description string `json:"description,omitempty"`
	Platform    string `json:"platform,omitempty"` // instagram, facebook, whatsapp, email
	Tone        string `json:"tone,omitempty"`
	Audience    string `json:"audience,omitempty"`
	Occasion    string `json:"occasion,omitempty"`
}

// MarketingResult is generated promotional copy
type MarketingResult struct {
	Platform     string   `json:"platform"`
	Caption      string   `json:"caption"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"callToAction,omitempty"`
}

// ImageRequest either describes an existing image or generates a new one
type ImageRequest struct {
	Mode     string `json:"mode" binding:"required,oneof=describe generate"`
	ImageURL string `json:"imageUrl,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// ImageResult carries the description or the generated image location
type ImageResult struct {
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	PublicID    string `json:"publicId,omitempty"`
}

// VoiceResult is a transcription plus the listing drafted from it
type VoiceResult struct {
	Transcript string         `json:"transcript"`
	Listing    *ContentResult `json:"listing,omitempty"`
}
