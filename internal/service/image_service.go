package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mealplan/internal/config"
	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/prompts"
	"github.com/timmy/mealplan/internal/storage"
	_ "golang.org/x/image/webp"
)

// ErrNoImageProvider is returned when no provider is configured or every
// provider failed.
var ErrNoImageProvider = errors.New("no image provider succeeded")

// imageProvider is one OpenAI-compatible images endpoint.
type imageProvider struct {
	name     string
	model    string
	size     string
	endpoint string
	client   *resty.Client
}

// ImageService generates a food photo per recipe, trying providers in order,
// and stores the result in object storage.
type ImageService struct {
	providers []*imageProvider
	storage   storage.ObjectStorage
	download  *resty.Client
}

// NewImageService creates an image service from the configured providers.
// Providers failing validation are skipped with a warning.
func NewImageService(cfgs []config.ImageProviderConfig, objectStorage storage.ObjectStorage, timeout time.Duration) *ImageService {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	var providers []*imageProvider
	for i := range cfgs {
		cfg := cfgs[i]
		if err := cfg.Validate(); err != nil {
			logger.Warn("[Image] Skipping provider: %v", err)
			continue
		}
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		size := cfg.Size
		if size == "" {
			size = "1024x1024"
		}
		providers = append(providers, &imageProvider{
			name:     cfg.Name,
			model:    cfg.Model,
			size:     size,
			endpoint: baseURL + "/images/generations",
			client: resty.New().
				SetHeader("Authorization", "Bearer "+cfg.APIKey).
				SetHeader("Content-Type", "application/json").
				SetTimeout(timeout),
		})
	}

	return &ImageService{
		providers: providers,
		storage:   objectStorage,
		download:  resty.New().SetTimeout(timeout),
	}
}

type imageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
	N      int    `json:"n"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// Generate produces and stores an image for one recipe. The result is never
// Success with an empty URL.
func (s *ImageService) Generate(ctx context.Context, req domain.ImageRequest) (domain.ImageResult, error) {
	if len(s.providers) == 0 {
		return domain.ImageResult{}, ErrNoImageProvider
	}

	prompt := prompts.BuildImagePrompt(req)
	var errs []error
	for _, p := range s.providers {
		start := time.Now()
		data, err := s.generateWith(ctx, p, prompt)
		if err != nil {
			logger.FromContext(ctx).WithFields(logger.Fields{
				logger.FieldProvider: p.name,
				logger.FieldRecipeID: req.RecipeID,
			}).WithError(err).Warn("Image provider failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		url, err := s.store(ctx, req.RecipeID, data)
		if err != nil {
			logger.FromContext(ctx).WithFields(logger.Fields{
				logger.FieldProvider: p.name,
				logger.FieldRecipeID: req.RecipeID,
			}).WithError(err).Warn("Image provider returned unusable image, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
			continue
		}

		logger.With(logger.Fields{
			logger.FieldProvider: p.name,
			logger.FieldRecipeID: req.RecipeID,
			logger.FieldSize:     len(data),
		}).WithDuration(time.Since(start).Milliseconds()).Debug(ctx, "Recipe image generated")

		return domain.ImageResult{Success: true, ImageURL: url}, nil
	}

	return domain.ImageResult{}, fmt.Errorf("%w: %w", ErrNoImageProvider, errors.Join(errs...))
}

func (s *ImageService) generateWith(ctx context.Context, p *imageProvider, prompt string) ([]byte, error) {
	var resp imageGenerationResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(imageGenerationRequest{Model: p.model, Prompt: prompt, Size: p.size, N: 1}).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call image API: %w", err)
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("image API returned error: %s", describeHTTPError(httpResp, resp.Error))
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("image API returned no data")
	}

	item := resp.Data[0]
	switch {
	case item.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}
		return data, nil
	case item.URL != "":
		dl, err := s.download.R().SetContext(ctx).Get(item.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		if dl.IsError() {
			return nil, fmt.Errorf("failed to download image: HTTP %d", dl.StatusCode())
		}
		return dl.Body(), nil
	default:
		return nil, errors.New("image API returned neither b64_json nor url")
	}
}

func (s *ImageService) store(ctx context.Context, recipeID string, data []byte) (string, error) {
	format, err := detectImageFormat(data)
	if err != nil {
		return "", err
	}
	key := storage.RecipeImageKey(recipeID, format)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypeFor(format)); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return s.storage.GetURL(key), nil
}

// detectImageFormat sniffs the image header with the registered decoders.
func detectImageFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unrecognized image data: %w", err)
	}
	if format == "jpeg" {
		return "jpg", nil
	}
	return format, nil
}

func contentTypeFor(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
