package mcptools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/services"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

var errNoUser = errors.New("no authenticated user on this session")

// result turns a service outcome into a tool result. Caller mistakes and
// upstream outages become tool errors the model can read; anything else is
// logged and reported generically.
func result(log *logrus.Entry, tool string, v interface{}, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation),
			errors.Is(err, services.ErrAIUnavailable),
			errors.Is(err, services.ErrAIResponse),
			errors.Is(err, services.ErrMediaUnavailable),
			errors.Is(err, errNoUser):
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.WithError(err).WithField("tool", tool).Error("Tool call failed")
		return mcp.NewToolResultError("internal error"), nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func caller(ctx context.Context) (uuid.UUID, error) {
	id, ok := UserFrom(ctx)
	if !ok {
		return uuid.Nil, errNoUser
	}
	return id, nil
}

type contentTool struct {
	ai  Toolset
	log *logrus.Entry
}

func (t *contentTool) Build() mcp.Tool {
	return mcp.NewTool("generate_product_content",
		mcp.WithDescription("Write a marketplace title, description, tags and maker story for a handmade product"),
		mcp.WithString("productName", mcp.Required(), mcp.Description("What the product is")),
		mcp.WithString("category", mcp.Description("Craft category, e.g. pottery or handloom")),
		mcp.WithString("materials", mcp.Description("Materials used")),
		mcp.WithString("region", mcp.Description("Region or craft tradition")),
		mcp.WithString("keywords", mcp.Description("Comma separated keywords to work in")),
		mcp.WithString("notes", mcp.Description("Anything else the artisan wants mentioned")),
		mcp.WithString("language", mcp.Description("Output language, defaults to English")),
	)
}

func (t *contentTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := caller(ctx)
	if err != nil {
		return result(t.log, "content", nil, err)
	}
	req := models.ContentRequest{
		ProductName: request.GetString("productName", ""),
		Category:    request.GetString("category", ""),
		Materials:   request.GetString("materials", ""),
		Region:      request.GetString("region", ""),
		Keywords:    splitList(request.GetString("keywords", "")),
		Notes:       request.GetString("notes", ""),
		Language:    request.GetString("language", ""),
	}
	out, err := t.ai.Content(ctx, uid, req)
	return result(t.log, "content", out, err)
}

type pricingTool struct {
	ai  Toolset
	log *logrus.Entry
}

func (t *pricingTool) Build() mcp.Tool {
	return mcp.NewTool("suggest_price",
		mcp.WithDescription("Suggest a fair price range that never drops below material and labour cost"),
		mcp.WithString("productName", mcp.Required(), mcp.Description("What the product is")),
		mcp.WithString("category", mcp.Description("Craft category")),
		mcp.WithNumber("materialCost", mcp.Description("Cost of materials")),
		mcp.WithNumber("hoursSpent", mcp.Description("Hours of work")),
		mcp.WithNumber("hourlyRate", mcp.Description("Artisan hourly rate, server default if omitted")),
		mcp.WithString("region", mcp.Description("Where it is sold")),
		mcp.WithString("notes", mcp.Description("Extra context")),
	)
}

func (t *pricingTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := caller(ctx)
	if err != nil {
		return result(t.log, "pricing", nil, err)
	}
	req := models.PricingRequest{
		ProductName:  request.GetString("productName", ""),
		Category:     request.GetString("category", ""),
		MaterialCost: request.GetFloat("materialCost", 0),
		HoursSpent:   request.GetFloat("hoursSpent", 0),
		HourlyRate:   request.GetFloat("hourlyRate", 0),
		Region:       request.GetString("region", ""),
		Notes:        request.GetString("notes", ""),
	}
	out, err := t.ai.Pricing(ctx, uid, req)
	return result(t.log, "pricing", out, err)
}

type marketingTool struct {
	ai  Toolset
	log *logrus.Entry
}

func (t *marketingTool) Build() mcp.Tool {
	return mcp.NewTool("write_marketing_copy",
		mcp.WithDescription("Write a promotional post for one social or messaging platform"),
		mcp.WithString("productName", mcp.Required(), mcp.Description("What the product is")),
		mcp.WithString("description", mcp.Description("Product description")),
		mcp.WithString("platform", mcp.Enum("instagram", "facebook", "whatsapp", "email", "twitter"), mcp.Description("Target platform")),
		mcp.WithString("tone", mcp.Description("Voice of the copy, e.g. warm or festive")),
		mcp.WithString("audience", mcp.Description("Who the post is for")),
		mcp.WithString("occasion", mcp.Description("Festival or event to tie in")),
	)
}

func (t *marketingTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := caller(ctx)
	if err != nil {
		return result(t.log, "marketing", nil, err)
	}
	req := models.MarketingRequest{
		ProductName: request.GetString("productName", ""),
		Description: request.GetString("description", ""),
		Platform:    request.GetString("platform", ""),
		Tone:        request.GetString("tone", ""),
		Audience:    request.GetString("audience", ""),
		Occasion:    request.GetString("occasion", ""),
	}
	out, err := t.ai.Marketing(ctx, uid, req)
	return result(t.log, "marketing", out, err)
}

type imageTool struct {
	ai  Toolset
	log *logrus.Entry
}

func (t *imageTool) Build() mcp.Tool {
	return mcp.NewTool("product_image",
		mcp.WithDescription("Describe a product photo from its URL, or generate a new product image from a prompt"),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("describe", "generate")),
		mcp.WithString("imageUrl", mcp.Description("Photo to describe")),
		mcp.WithString("prompt", mcp.Description("What to generate")),
	)
}

func (t *imageTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := caller(ctx)
	if err != nil {
		return result(t.log, "image", nil, err)
	}
	req := models.ImageRequest{
		Mode:     request.GetString("mode", ""),
		ImageURL: request.GetString("imageUrl", ""),
		Prompt:   request.GetString("prompt", ""),
	}
	out, err := t.ai.Image(ctx, uid, req)
	return result(t.log, "image", out, err)
}

type voiceTool struct {
	ai  Toolset
	log *logrus.Entry
}

func (t *voiceTool) Build() mcp.Tool {
	return mcp.NewTool("voice_to_listing",
		mcp.WithDescription("Transcribe an artisan's voice note and optionally draft a listing from it"),
		mcp.WithString("audioBase64", mcp.Required(), mcp.Description("Base64 encoded audio")),
		mcp.WithString("mimeType", mcp.Description("Audio MIME type, e.g. audio/webm")),
		mcp.WithBoolean("draftListing", mcp.Description("Also draft title, description and tags")),
	)
}

func (t *voiceTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := caller(ctx)
	if err != nil {
		return result(t.log, "voice", nil, err)
	}
	encoded, err := request.RequireString("audioBase64")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return mcp.NewToolResultError("audioBase64 is not valid base64"), nil
	}
	out, err := t.ai.Voice(ctx, uid, data, request.GetString("mimeType", ""), request.GetBool("draftListing", true))
	return result(t.log, "voice", out, err)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
