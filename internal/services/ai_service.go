package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"artisan-marketplace/internal/clients"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"
	"artisan-marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	defaultPlatform = "instagram"
	defaultTone     = "warm"
	imageFetchLimit = 10 << 20
)

var supportedPlatforms = map[string]bool{
	"instagram": true,
	"facebook":  true,
	"whatsapp":  true,
	"email":     true,
	"twitter":   true,
}

// AIConfig holds defaults for the generative tools
type AIConfig struct {
	Currency          string
	DefaultHourlyRate float64
	MediaFolder       string
	MaxUploadBytes    int64
	// ImageURLPrefixes are the media store locations describe mode may fetch from
	ImageURLPrefixes []string
}

// AIService runs the content, pricing, marketing, image and voice tools and
// keeps a history of every generation
type AIService struct {
	generator  clients.Generator
	media      storage.MediaStore
	history    repository.AIGenerationRepository
	httpClient *http.Client
	cfg        AIConfig
	log        *logrus.Entry
}

// NewAIService creates a new AIService. A nil generator disables every tool
// and a nil media store disables image generation.
func NewAIService(generator clients.Generator, media storage.MediaStore, history repository.AIGenerationRepository, cfg AIConfig, log *logrus.Logger) *AIService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = imageFetchLimit
	}
	return &AIService{
		generator:  generator,
		media:      media,
		history:    history,
		httpClient: newImageClient(cfg.ImageURLPrefixes),
		cfg:        cfg,
		log:        log.WithField("component", "ai_service"),
	}
}

// Available reports whether a model API is configured
func (s *AIService) Available() bool {
	return s.generator != nil
}

func (s *AIService) generateJSON(ctx context.Context, system, prompt string, out interface{}) (string, error) {
	raw, err := s.generator.GenerateText(ctx, system, prompt, true)
	if err != nil {
		return "", mapAIError(err)
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), out); err != nil {
		s.log.WithError(err).Warn("Model returned malformed JSON")
		return raw, ErrAIResponse
	}
	return raw, nil
}

func mapAIError(err error) error {
	switch {
	case errors.Is(err, clients.ErrAIUnavailable):
		return ErrAIUnavailable
	case errors.Is(err, clients.ErrEmptyCompletion):
		return ErrAIResponse
	}
	return err
}

// record stores the generation. History is best effort and never fails the call.
func (s *AIService) record(ctx context.Context, userID uuid.UUID, tool models.AITool, model, prompt string, input interface{}, output string, started time.Time) {
	if s.history == nil {
		return
	}
	gen := &models.AIGeneration{
		UserID:    userID,
		Tool:      tool,
		Model:     model,
		Prompt:    prompt,
		Output:    output,
		LatencyMs: time.Since(started).Milliseconds(),
	}
	if input != nil {
		if raw, err := json.Marshal(input); err == nil {
			gen.Input = datatypes.JSON(raw)
		}
	}
	if err := s.history.Create(ctx, gen); err != nil {
		s.log.WithError(err).WithField("tool", tool).Warn("Failed to record AI generation")
	}
}

// Content drafts a product title, description and tags
func (s *AIService) Content(ctx context.Context, userID uuid.UUID, req models.ContentRequest) (*models.ContentResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	if strings.TrimSpace(req.ProductName) == "" {
		return nil, validationError("productName is required")
	}

	started := time.Now()
	prompt := contentPrompt(req)
	var result models.ContentResult
	raw, err := s.generateJSON(ctx, contentSystemPrompt, prompt, &result)
	if err != nil {
		return nil, err
	}
	result.Tags = cleanList(result.Tags, true)

	s.record(ctx, userID, models.AIToolContent, s.generator.TextModel(), prompt, req, raw, started)
	return &result, nil
}

// CostFloor is what the artisan spent on materials and labour
func CostFloor(materialCost, hours, hourlyRate float64) float64 {
	return roundMoney(materialCost + hours*hourlyRate)
}

// Pricing suggests a price range. The range never drops below the cost floor
// whatever the model says.
func (s *AIService) Pricing(ctx context.Context, userID uuid.UUID, req models.PricingRequest) (*models.PricingResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	if strings.TrimSpace(req.ProductName) == "" {
		return nil, validationError("productName is required")
	}
	if req.MaterialCost < 0 || req.HoursSpent < 0 || req.HourlyRate < 0 {
		return nil, validationError("costs and hours cannot be negative")
	}

	rate := req.HourlyRate
	if rate == 0 {
		rate = s.cfg.DefaultHourlyRate
	}
	floor := CostFloor(req.MaterialCost, req.HoursSpent, rate)

	started := time.Now()
	prompt := pricingPrompt(req, rate, floor, s.cfg.Currency)
	var result models.PricingResult
	raw, err := s.generateJSON(ctx, fmt.Sprintf(pricingSystemPrompt, s.cfg.Currency), prompt, &result)
	if err != nil {
		return nil, err
	}
	ClampPricing(&result, floor)
	result.Currency = s.cfg.Currency

	s.record(ctx, userID, models.AIToolPricing, s.generator.TextModel(), prompt, req, raw, started)
	return &result, nil
}

// ClampPricing orders the range and lifts it above the cost floor
func ClampPricing(result *models.PricingResult, floor float64) {
	result.CostFloor = floor
	result.MinPrice = math.Max(roundMoney(result.MinPrice), floor)
	result.SuggestedPrice = math.Max(roundMoney(result.SuggestedPrice), result.MinPrice)
	result.MaxPrice = math.Max(roundMoney(result.MaxPrice), result.SuggestedPrice)
}

// Marketing writes promotional copy for one platform
func (s *AIService) Marketing(ctx context.Context, userID uuid.UUID, req models.MarketingRequest) (*models.MarketingResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	if strings.TrimSpace(req.ProductName) == "" {
		return nil, validationError("productName is required")
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = defaultPlatform
	}
	if !supportedPlatforms[platform] {
		return nil, validationError("unsupported platform %q", req.Platform)
	}
	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = defaultTone
	}

	started := time.Now()
	prompt := marketingPrompt(req, platform, tone)
	var result models.MarketingResult
	raw, err := s.generateJSON(ctx, marketingSystemPrompt, prompt, &result)
	if err != nil {
		return nil, err
	}
	result.Platform = platform
	for i, tag := range result.Hashtags {
		result.Hashtags[i] = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	}
	result.Hashtags = cleanList(result.Hashtags, false)

	s.record(ctx, userID, models.AIToolMarketing, s.generator.TextModel(), prompt, req, raw, started)
	return &result, nil
}

// Image describes the image at ImageURL or generates a new one from Prompt
func (s *AIService) Image(ctx context.Context, userID uuid.UUID, req models.ImageRequest) (*models.ImageResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	switch req.Mode {
	case "describe":
		if strings.TrimSpace(req.ImageURL) == "" {
			return nil, validationError("imageUrl is required to describe an image")
		}
		data, contentType, err := s.fetchImage(ctx, req.ImageURL)
		if err != nil {
			return nil, err
		}
		return s.describe(ctx, userID, data, contentType, map[string]string{"mode": req.Mode, "imageUrl": req.ImageURL})
	case "generate":
		return s.generateImage(ctx, userID, req)
	}
	return nil, validationError("mode must be describe or generate")
}

// DescribeImage describes uploaded image bytes
func (s *AIService) DescribeImage(ctx context.Context, userID uuid.UUID, data []byte, declaredType string) (*models.ImageResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	contentType, kind, err := storage.Validate(data, declaredType, s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, validationError("%v", err)
	}
	if kind != storage.KindImage {
		return nil, validationError("file is not an image")
	}
	return s.describe(ctx, userID, data, contentType, map[string]interface{}{"mode": "describe", "bytes": len(data)})
}

func (s *AIService) describe(ctx context.Context, userID uuid.UUID, data []byte, contentType string, input interface{}) (*models.ImageResult, error) {
	started := time.Now()
	text, err := s.generator.DescribeMedia(ctx, imageDescribeInstruction, data, contentType)
	if err != nil {
		return nil, mapAIError(err)
	}
	s.record(ctx, userID, models.AIToolImage, s.generator.TextModel(), imageDescribeInstruction, input, text, started)
	return &models.ImageResult{Description: strings.TrimSpace(text)}, nil
}

func (s *AIService) generateImage(ctx context.Context, userID uuid.UUID, req models.ImageRequest) (*models.ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, validationError("prompt is required to generate an image")
	}
	if s.media == nil {
		return nil, ErrMediaUnavailable
	}

	started := time.Now()
	fullPrompt := imageGenerateStyle + prompt
	data, contentType, err := s.generator.GenerateImage(ctx, fullPrompt)
	if err != nil {
		return nil, mapAIError(err)
	}
	obj, err := s.media.Upload(ctx, data, storage.UploadOptions{
		Filename:    "generated" + extensionFor(contentType),
		ContentType: contentType,
		Kind:        storage.KindImage,
		Folder:      s.cfg.MediaFolder,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, userID, models.AIToolImage, s.generator.ImageModel(), fullPrompt, req, obj.URL, started)
	return &models.ImageResult{ImageURL: obj.URL, PublicID: obj.PublicID}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ".png"
}

// newImageClient only dials public addresses and only follows redirects that
// stay inside the media store.
func newImageClient(prefixes []string) *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !isPublicIP(ip) {
				return fmt.Errorf("%w: refusing to fetch from %s", ErrValidation, host)
			}
			return nil
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{
		Timeout:   20 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 || !hasPrefix(req.URL.String(), prefixes) {
				return fmt.Errorf("%w: redirect outside the media store", ErrValidation)
			}
			return nil
		},
	}
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}

func hasPrefix(rawURL string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}

// fetchImage downloads a product photo from the marketplace media store
func (s *AIService) fetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" || u.User != nil {
		return nil, "", validationError("imageUrl must be an http(s) URL")
	}
	if !hasPrefix(u.String(), s.cfg.ImageURLPrefixes) {
		return nil, "", validationError("imageUrl must point at the marketplace media store")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", validationError("invalid imageUrl")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, "", validationError("imageUrl is not reachable from the media store")
		}
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", validationError("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	contentType, kind, err := storage.Validate(data, resp.Header.Get("Content-Type"), s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, "", validationError("%v", err)
	}
	if kind != storage.KindImage {
		return nil, "", validationError("imageUrl does not point at an image")
	}
	return data, contentType, nil
}

// Voice transcribes an audio note and, when asked, drafts a listing from it
func (s *AIService) Voice(ctx context.Context, userID uuid.UUID, data []byte, declaredType string, draftListing bool) (*models.VoiceResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	contentType, kind, err := storage.Validate(data, declaredType, s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, validationError("%v", err)
	}
	if kind != storage.KindAudio {
		return nil, validationError("file is not an audio clip")
	}

	started := time.Now()
	transcript, err := s.generator.DescribeMedia(ctx, voiceTranscribeInstruction, data, contentType)
	if err != nil {
		return nil, mapAIError(err)
	}
	transcript = strings.TrimSpace(transcript)
	result := &models.VoiceResult{Transcript: transcript}

	output := transcript
	if draftListing && transcript != "" {
		var listing models.ContentResult
		raw, err := s.generateJSON(ctx, voiceListingSystemPrompt, voiceListingPrompt(transcript), &listing)
		switch {
		case err == nil:
			listing.Tags = cleanList(listing.Tags, true)
			result.Listing = &listing
			output = transcript + "\n\n" + raw
		case errors.Is(err, ErrAIResponse):
			// The transcript is still useful on its own
			s.log.WithField("user_id", userID).Warn("Could not draft listing from voice note")
		default:
			return nil, err
		}
	}

	input := map[string]interface{}{"contentType": contentType, "bytes": len(data), "draftListing": draftListing}
	s.record(ctx, userID, models.AIToolVoice, s.generator.TextModel(), voiceTranscribeInstruction, input, output, started)
	return result, nil
}

// History lists the caller's past generations, optionally for one tool
func (s *AIService) History(ctx context.Context, userID uuid.UUID, tool *models.AITool, page, limit int) ([]models.AIGeneration, int64, error) {
	return s.history.ListByUser(ctx, userID, tool, page, limit)
}
