package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"artisan-marketplace/internal/clients"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	mp3Bytes = append([]byte("ID3\x03\x00\x00\x00"), make([]byte, 32)...)
)

type aiFixture struct {
	generator *MockGenerator
	media     *MockMediaStore
	history   *MockAIGenerationRepository
	service   *AIService
}

func newAIFixture() *aiFixture {
	f := &aiFixture{
		generator: new(MockGenerator),
		media:     new(MockMediaStore),
		history:   new(MockAIGenerationRepository),
	}
	f.history.On("Create", mock.Anything, mock.AnythingOfType("*models.AIGeneration")).Return(nil).Maybe()
	f.service = NewAIService(f.generator, f.media, f.history, AIConfig{
		Currency:          "INR",
		DefaultHourlyRate: 150,
		MediaFolder:       "artisan-marketplace/ai",
		MaxUploadBytes:    1 << 20,
	}, testLogger())
	return f
}

func TestAIToolsWithoutGenerator(t *testing.T) {
	ctx := context.Background()
	s := NewAIService(nil, nil, nil, AIConfig{}, testLogger())
	uid := uuid.New()

	assert.False(t, s.Available())
	_, err := s.Content(ctx, uid, models.ContentRequest{ProductName: "Vase"})
	assert.ErrorIs(t, err, ErrAIUnavailable)
	_, err = s.Pricing(ctx, uid, models.PricingRequest{ProductName: "Vase"})
	assert.ErrorIs(t, err, ErrAIUnavailable)
	_, err = s.Marketing(ctx, uid, models.MarketingRequest{ProductName: "Vase"})
	assert.ErrorIs(t, err, ErrAIUnavailable)
	_, err = s.Image(ctx, uid, models.ImageRequest{Mode: "generate", Prompt: "vase"})
	assert.ErrorIs(t, err, ErrAIUnavailable)
	_, err = s.Voice(ctx, uid, mp3Bytes, "audio/mpeg", false)
	assert.ErrorIs(t, err, ErrAIUnavailable)
}

func TestContent(t *testing.T) {
	ctx := context.Background()
	uid := uuid.New()

	t.Run("parses fenced JSON and records history", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("GenerateText", ctx, contentSystemPrompt, mock.MatchedBy(func(p string) bool {
			return strings.Contains(p, "Blue Pottery Vase") && strings.Contains(p, "Jaipur")
		}), true).Return("```json\n{\"title\":\"Jaipur Blue Vase\",\"description\":\"Hand painted.\",\"tags\":[\"Pottery\",\"pottery\",\"Blue\"]}\n```", nil)

		result, err := f.service.Content(ctx, uid, models.ContentRequest{ProductName: "Blue Pottery Vase", Region: "Jaipur"})
		require.NoError(t, err)
		assert.Equal(t, "Jaipur Blue Vase", result.Title)
		assert.Equal(t, []string{"pottery", "blue"}, result.Tags)
		f.history.AssertCalled(t, "Create", ctx, mock.MatchedBy(func(g *models.AIGeneration) bool {
			return g.Tool == models.AIToolContent && g.UserID == uid && g.Model == "test-text-model"
		}))
	})

	t.Run("malformed output", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("GenerateText", ctx, mock.Anything, mock.Anything, true).Return("Sure! Here is a title.", nil)

		_, err := f.service.Content(ctx, uid, models.ContentRequest{ProductName: "Vase"})
		assert.ErrorIs(t, err, ErrAIResponse)
		f.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("upstream unavailable", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("GenerateText", ctx, mock.Anything, mock.Anything, true).Return("", fmt.Errorf("quota: %w", clients.ErrAIUnavailable))

		_, err := f.service.Content(ctx, uid, models.ContentRequest{ProductName: "Vase"})
		assert.ErrorIs(t, err, ErrAIUnavailable)
	})

	t.Run("product name required", func(t *testing.T) {
		f := newAIFixture()
		_, err := f.service.Content(ctx, uid, models.ContentRequest{ProductName: "  "})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCostFloorAndClamp(t *testing.T) {
	assert.Equal(t, 1100.0, CostFloor(500, 4, 150))

	tests := []struct {
		name  string
		in    models.PricingResult
		floor float64
		want  models.PricingResult
	}{
		{
			name:  "sane range untouched",
			in:    models.PricingResult{MinPrice: 1200, SuggestedPrice: 1500, MaxPrice: 1800},
			floor: 1100,
			want:  models.PricingResult{MinPrice: 1200, SuggestedPrice: 1500, MaxPrice: 1800, CostFloor: 1100},
		},
		{
			name:  "range below cost lifted",
			in:    models.PricingResult{MinPrice: 300, SuggestedPrice: 400, MaxPrice: 500},
			floor: 1100,
			want:  models.PricingResult{MinPrice: 1100, SuggestedPrice: 1100, MaxPrice: 1100, CostFloor: 1100},
		},
		{
			name:  "inverted range ordered",
			in:    models.PricingResult{MinPrice: 900, SuggestedPrice: 800, MaxPrice: 700},
			floor: 0,
			want:  models.PricingResult{MinPrice: 900, SuggestedPrice: 900, MaxPrice: 900},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			ClampPricing(&got, tt.floor)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPricing(t *testing.T) {
	ctx := context.Background()
	uid := uuid.New()

	f := newAIFixture()
	f.generator.On("GenerateText", ctx, mock.Anything, mock.Anything, true).
		Return(`{"suggestedPrice":900,"minPrice":700,"maxPrice":1400,"rationale":"Comparable block prints sell for less."}`, nil)

	result, err := f.service.Pricing(ctx, uid, models.PricingRequest{ProductName: "Block print scarf", MaterialCost: 400, HoursSpent: 4})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, result.CostFloor, "default hourly rate applies")
	assert.Equal(t, 1000.0, result.MinPrice)
	assert.Equal(t, 1000.0, result.SuggestedPrice)
	assert.Equal(t, 1400.0, result.MaxPrice)
	assert.Equal(t, "INR", result.Currency)

	_, err = f.service.Pricing(ctx, uid, models.PricingRequest{ProductName: "Scarf", MaterialCost: -1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarketing(t *testing.T) {
	ctx := context.Background()
	uid := uuid.New()

	f := newAIFixture()
	f.generator.On("GenerateText", ctx, marketingSystemPrompt, mock.Anything, true).
		Return(`{"caption":"Diwali glow","hashtags":["#Handmade"," #Diwali","Handmade"],"callToAction":"Shop now"}`, nil)

	result, err := f.service.Marketing(ctx, uid, models.MarketingRequest{ProductName: "Brass diya"})
	require.NoError(t, err)
	assert.Equal(t, "instagram", result.Platform)
	assert.Equal(t, []string{"Handmade", "Diwali"}, result.Hashtags)

	_, err = f.service.Marketing(ctx, uid, models.MarketingRequest{ProductName: "Brass diya", Platform: "myspace"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestImage(t *testing.T) {
	ctx := context.Background()
	uid := uuid.New()

	t.Run("generate uploads to media store", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("GenerateImage", ctx, imageGenerateStyle+"terracotta horse").Return(pngBytes, "image/png", nil)
		f.media.On("Upload", ctx, pngBytes, storage.UploadOptions{
			Filename:    "generated.png",
			ContentType: "image/png",
			Kind:        storage.KindImage,
			Folder:      "artisan-marketplace/ai",
		}).Return(&storage.Object{URL: "https://cdn/horse.png", PublicID: "artisan-marketplace/ai/image/abc"}, nil)

		result, err := f.service.Image(ctx, uid, models.ImageRequest{Mode: "generate", Prompt: " terracotta horse "})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/horse.png", result.ImageURL)
		assert.Equal(t, "artisan-marketplace/ai/image/abc", result.PublicID)
	})

	t.Run("generate without media store", func(t *testing.T) {
		s := NewAIService(new(MockGenerator), nil, nil, AIConfig{}, testLogger())
		_, err := s.Image(ctx, uid, models.ImageRequest{Mode: "generate", Prompt: "horse"})
		assert.ErrorIs(t, err, ErrMediaUnavailable)
	})

	t.Run("describe fetches the URL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		}))
		defer srv.Close()

		f := newAIFixture()
		f.service.cfg.ImageURLPrefixes = []string{srv.URL + "/"}
		f.service.httpClient = srv.Client()
		f.generator.On("DescribeMedia", ctx, imageDescribeInstruction, pngBytes, "image/png").Return(" A hand painted vase. ", nil)

		result, err := f.service.Image(ctx, uid, models.ImageRequest{Mode: "describe", ImageURL: srv.URL + "/vase.png"})
		require.NoError(t, err)
		assert.Equal(t, "A hand painted vase.", result.Description)
	})

	t.Run("describe rejects non-images", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html><body>not an image</body></html>"))
		}))
		defer srv.Close()

		f := newAIFixture()
		f.service.cfg.ImageURLPrefixes = []string{srv.URL + "/"}
		f.service.httpClient = srv.Client()
		_, err := f.service.Image(ctx, uid, models.ImageRequest{Mode: "describe", ImageURL: srv.URL + "/page"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("describe refuses hosts outside the media store", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		}))
		defer srv.Close()

		f := newAIFixture()
		for _, target := range []string{srv.URL + "/vase.png", "http://127.0.0.1/latest/meta-data", "http://169.254.169.254/latest/meta-data/"} {
			_, err := f.service.Image(ctx, uid, models.ImageRequest{Mode: "describe", ImageURL: target})
			assert.ErrorIs(t, err, ErrValidation, target)
		}
		assert.Zero(t, atomic.LoadInt32(&hits))
		f.generator.AssertNotCalled(t, "DescribeMedia", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("describe refuses loopback behind an allowed prefix", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		}))
		defer srv.Close()

		gen := new(MockGenerator)
		s := NewAIService(gen, nil, nil, AIConfig{ImageURLPrefixes: []string{srv.URL + "/"}}, testLogger())
		_, err := s.Image(ctx, uid, models.ImageRequest{Mode: "describe", ImageURL: srv.URL + "/vase.png"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Zero(t, atomic.LoadInt32(&hits))
	})

	t.Run("describe rejects credentials in url", func(t *testing.T) {
		f := newAIFixture()
		f.service.cfg.ImageURLPrefixes = []string{"https://res.cloudinary.com/demo/"}
		_, err := f.service.Image(ctx, uid, models.ImageRequest{Mode: "describe", ImageURL: "https://user:pw@res.cloudinary.com/demo/a.png"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("describe needs http url", func(t *testing.T) {
		f := newAIFixture()
		_, err := f.service.Image(ctx, uid, models.ImageRequest{Mode: "describe", ImageURL: "file:///etc/passwd"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown mode", func(t *testing.T) {
		f := newAIFixture()
		_, err := f.service.Image(ctx, uid, models.ImageRequest{Mode: "edit"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("describe upload", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("DescribeMedia", ctx, imageDescribeInstruction, pngBytes, "image/png").Return("Vase", nil)

		result, err := f.service.DescribeImage(ctx, uid, pngBytes, "")
		require.NoError(t, err)
		assert.Equal(t, "Vase", result.Description)

		_, err = f.service.DescribeImage(ctx, uid, mp3Bytes, "audio/mpeg")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestVoice(t *testing.T) {
	ctx := context.Background()
	uid := uuid.New()
	transcript := "This is a hand woven Banarasi silk saree, took three weeks."

	t.Run("transcript with drafted listing", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("DescribeMedia", ctx, voiceTranscribeInstruction, mp3Bytes, "audio/mpeg").Return(transcript, nil)
		f.generator.On("GenerateText", ctx, voiceListingSystemPrompt, voiceListingPrompt(transcript), true).
			Return(`{"title":"Banarasi Silk Saree","description":"Hand woven.","tags":["Silk","Saree"]}`, nil)

		result, err := f.service.Voice(ctx, uid, mp3Bytes, "audio/mpeg", true)
		require.NoError(t, err)
		assert.Equal(t, transcript, result.Transcript)
		require.NotNil(t, result.Listing)
		assert.Equal(t, []string{"silk", "saree"}, result.Listing.Tags)
	})

	t.Run("bad listing JSON keeps transcript", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("DescribeMedia", ctx, voiceTranscribeInstruction, mp3Bytes, "audio/mpeg").Return(transcript, nil)
		f.generator.On("GenerateText", ctx, voiceListingSystemPrompt, mock.Anything, true).Return("no json here", nil)

		result, err := f.service.Voice(ctx, uid, mp3Bytes, "audio/mpeg", true)
		require.NoError(t, err)
		assert.Equal(t, transcript, result.Transcript)
		assert.Nil(t, result.Listing)
	})

	t.Run("transcript only", func(t *testing.T) {
		f := newAIFixture()
		f.generator.On("DescribeMedia", ctx, voiceTranscribeInstruction, mp3Bytes, "audio/mpeg").Return(transcript, nil)

		result, err := f.service.Voice(ctx, uid, mp3Bytes, "audio/mpeg", false)
		require.NoError(t, err)
		assert.Nil(t, result.Listing)
		f.generator.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("images are not voice notes", func(t *testing.T) {
		f := newAIFixture()
		_, err := f.service.Voice(ctx, uid, pngBytes, "image/png", false)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1} "))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
}

func TestIsPublicIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.9", false},
		{"192.168.1.20", false},
		{"169.254.169.254", false},
		{"0.0.0.0", false},
		{"fd00::1", false},
		{"104.16.10.5", true},
		{"2606:4700::1", true},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, isPublicIP(net.ParseIP(tt.ip)))
		})
	}
}
