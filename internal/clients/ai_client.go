package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrAIUnavailable is returned when no model API key is configured
var ErrAIUnavailable = errors.New("generative AI is not configured")

// ErrEmptyCompletion is returned when the model answers with no text
var ErrEmptyCompletion = errors.New("model returned an empty response")

// Generator is the model API used by the marketplace tools
type Generator interface {
	// GenerateText completes prompt under the system instruction. With
	// jsonOutput the model is asked for a JSON document.
	GenerateText(ctx context.Context, system, prompt string, jsonOutput bool) (string, error)
	// DescribeMedia sends inline image or audio bytes with an instruction
	DescribeMedia(ctx context.Context, instruction string, data []byte, mimeType string) (string, error)
	// GenerateImage renders an image from prompt and returns its bytes and MIME type
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
	TextModel() string
	ImageModel() string
}

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	APIKey            string
	TextModel         string
	ImageModel        string
	RequestsPerSecond float64
	MaxRetries        uint64
	Timeout           time.Duration
}

// GeminiClient implements Generator with the Google Gen AI SDK
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	limiter    *rate.Limiter
	maxRetries uint64
	timeout    time.Duration
	log        *logrus.Entry
}

// NewGeminiClient creates a rate limited Gemini client
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log *logrus.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrAIUnavailable
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &GeminiClient{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		log:        log.WithField("component", "gemini_client"),
	}, nil
}

func (c *GeminiClient) TextModel() string  { return c.textModel }
func (c *GeminiClient) ImageModel() string { return c.imageModel }

// call waits for the limiter and retries transient failures with a Fibonacci backoff
func (c *GeminiClient) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrEmptyCompletion) {
			return err
		}
		c.log.WithError(err).WithField("op", op).Warn("Model call failed, retrying")
		return retry.RetryableError(err)
	})
}

func (c *GeminiClient) GenerateText(ctx context.Context, system, prompt string, jsonOutput bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if jsonOutput {
		cfg.ResponseMIMEType = "application/json"
		cfg.Temperature = genai.Ptr[float32](0.4)
	}

	var out string
	err := c.call(ctx, "generate_text", func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), cfg)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(resp.Text())
		if out == "" {
			return ErrEmptyCompletion
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}
	return out, nil
}

func (c *GeminiClient) DescribeMedia(ctx context.Context, instruction string, data []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}

	var out string
	err := c.call(ctx, "describe_media", func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateContent(ctx, c.textModel, contents, nil)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(resp.Text())
		if out == "" {
			return ErrEmptyCompletion
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("media understanding failed: %w", err)
	}
	return out, nil
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	var (
		data     []byte
		mimeType string
	)
	err := c.call(ctx, "generate_image", func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
			OutputMIMEType: "image/png",
		})
		if err != nil {
			return err
		}
		if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
			len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
			return ErrEmptyCompletion
		}
		img := resp.GeneratedImages[0].Image
		data = img.ImageBytes
		mimeType = img.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("image generation failed: %w", err)
	}
	return data, mimeType, nil
}
