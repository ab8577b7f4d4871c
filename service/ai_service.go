package service

import (
	"context"
)

// Part is one piece of a multimodal model request. Exactly one of Text, Data
// or FileURI is set.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
	FileURI  string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func BlobPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

func FilePart(mimeType, uri string) Part {
	return Part{MIMEType: mimeType, FileURI: uri}
}

type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Parts             []Part
	Temperature       float32
}

// RemoteFile is a file uploaded to the provider for analysis.
type RemoteFile struct {
	Name     string
	URI      string
	MIMEType string
}

// AIService is the remote generative-AI provider.
type AIService interface {
	Embed(ctx context.Context, model, text string, dimensions int) ([]float32, error)
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// FileUploader is implemented by providers with a file API for large payloads.
type FileUploader interface {
	UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (*RemoteFile, error)
	DeleteFile(ctx context.Context, name string) error
}

// NativeTranscriber is implemented by providers with a dedicated speech-to-text endpoint.
type NativeTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (string, error)
}
