package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const fileActivePollInterval = 2 * time.Second

type GeminiService struct {
	apiKeys    []string
	currentKey int
	client     *genai.Client
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewGeminiService creates a Gemini client. apiKey may hold several
// comma-separated keys; the client rotates to the next one after a failed call.
func NewGeminiService(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiService, error) {
	apiKeys := make([]string, 0)
	for _, key := range strings.Split(apiKey, ",") {
		if key = strings.TrimSpace(key); key != "" {
			apiKeys = append(apiKeys, key)
		}
	}
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}

	service := &GeminiService{
		apiKeys: apiKeys,
		logger:  logger,
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKeys[0]))
	if err != nil {
		return nil, err
	}
	service.client = client
	return service, nil
}

func (s *GeminiService) currentClient() *genai.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// rotateAPIKey swaps the client for one using the next key. It reports false
// when there is no other key to rotate to.
func (s *GeminiService) rotateAPIKey(ctx context.Context, failed *genai.Client) bool {
	if len(s.apiKeys) < 2 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != failed {
		// another request already rotated
		return true
	}
	next := (s.currentKey + 1) % len(s.apiKeys)
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKeys[next]))
	if err != nil {
		s.logger.Warn("Failed to rotate Gemini API key", zap.Error(err))
		return false
	}
	old := s.client
	s.client = client
	s.currentKey = next
	go old.Close()
	return true
}

// withRotation runs call once and, if it fails and another key exists, once more.
func withRotation[T any](ctx context.Context, s *GeminiService, call func(*genai.Client) (T, error)) (T, error) {
	client := s.currentClient()
	result, err := call(client)
	if err == nil || ctx.Err() != nil {
		return result, err
	}
	if !s.rotateAPIKey(ctx, client) {
		return result, err
	}
	s.logger.Debug("Retrying Gemini call with rotated API key", zap.Error(err))
	return call(s.currentClient())
}

// Embed ignores dimensions: text-embedding-004 always answers with 768 values
// and the SDK has no output dimensionality option. Callers check the length.
func (s *GeminiService) Embed(ctx context.Context, model, text string, dimensions int) ([]float32, error) {
	return withRotation(ctx, s, func(client *genai.Client) ([]float32, error) {
		em := client.EmbeddingModel(model)
		res, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if res == nil || res.Embedding == nil {
			return nil, errors.New("no embedding returned")
		}
		return res.Embedding.Values, nil
	})
}

func (s *GeminiService) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	parts := make([]genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		switch {
		case p.FileURI != "":
			parts = append(parts, genai.FileData{MIMEType: p.MIMEType, URI: p.FileURI})
		case p.Data != nil:
			parts = append(parts, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
		default:
			parts = append(parts, genai.Text(p.Text))
		}
	}

	return withRotation(ctx, s, func(client *genai.Client) (string, error) {
		model := client.GenerativeModel(req.Model)
		model.SetTemperature(req.Temperature)
		if req.SystemInstruction != "" {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(req.SystemInstruction)},
			}
		}
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 {
			return "", errors.New("no response generated")
		}
		var content strings.Builder
		candidate := resp.Candidates[0]
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					content.WriteString(string(text))
				}
			}
		}
		return content.String(), nil
	})
}

// UploadFile sends data to the Gemini file API and waits until it is usable.
func (s *GeminiService) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (*RemoteFile, error) {
	client := s.currentClient()
	file, err := client.UploadFile(ctx, "", bytes.NewReader(data), &genai.UploadFileOptions{
		DisplayName: displayName,
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	ticker := time.NewTicker(fileActivePollInterval)
	defer ticker.Stop()
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			_ = client.DeleteFile(context.WithoutCancel(ctx), file.Name)
			return nil, ctx.Err()
		case <-ticker.C:
		}
		file, err = client.GetFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("poll file state: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		_ = client.DeleteFile(ctx, file.Name)
		return nil, fmt.Errorf("file %s failed processing", file.Name)
	}
	return &RemoteFile{Name: file.Name, URI: file.URI, MIMEType: file.MIMEType}, nil
}

func (s *GeminiService) DeleteFile(ctx context.Context, name string) error {
	return s.currentClient().DeleteFile(ctx, name)
}

// PurgeFiles deletes every file left on the provider, e.g. after a crash
// between upload and cleanup. It returns how many were deleted.
func (s *GeminiService) PurgeFiles(ctx context.Context) (int, error) {
	client := s.currentClient()
	iter := client.ListFiles(ctx)
	deleted := 0
	for {
		file, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, err
		}
		if err := client.DeleteFile(ctx, file.Name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *GeminiService) Close() error {
	return s.currentClient().Close()
}
