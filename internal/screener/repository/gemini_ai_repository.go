package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"options-income-screener/internal/entity"
	"options-income-screener/internal/screener/config"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// AIRepository generates natural-language rationales for scored picks.
type AIRepository interface {
	GenerateRationales(ctx context.Context, picks []entity.ScreenedPick) (map[int64]string, error)
}

// geminiAIRepository is an AIRepository backed by the Google Gemini API.
type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (AIRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
	}, nil
}

type rationaleResponse struct {
	Rationales []struct {
		PickID    int64  `json:"pick_id"`
		Rationale string `json:"rationale"`
	} `json:"rationales"`
}

// GenerateRationales asks Gemini for a short rationale per pick. A partial
// result map is returned when the model answers for only some picks.
func (r *geminiAIRepository) GenerateRationales(ctx context.Context, picks []entity.ScreenedPick) (map[int64]string, error) {
	if len(picks) == 0 {
		return map[int64]string{}, nil
	}

	prompt := BuildRationalePrompt(picks)

	text, err := r.executeGeminiRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed rationaleResponse
	cleaned := strings.Trim(text, "`json\n`")
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rationales from Gemini response: %w", err)
	}

	out := make(map[int64]string, len(parsed.Rationales))
	for _, item := range parsed.Rationales {
		if item.Rationale != "" {
			out[item.PickID] = item.Rationale
		}
	}
	return out, nil
}

func (r *geminiAIRepository) executeGeminiRequest(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return "", fmt.Errorf("failed to wait for token limit: %w", err)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call Gemini API: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("invalid response from Gemini API: no content found")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
