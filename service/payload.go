package service

import (
	"context"
	"errors"

	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

// filePayload turns data into a model part. Files up to inlineLimit, or any
// file when the provider has no file API, are sent inline; larger files are
// uploaded and the returned cleanup deletes the upload.
func filePayload(ctx context.Context, uploader FileUploader, data []byte, mimeType, name string, inlineLimit int64, logger *zap.Logger) (Part, func(), error) {
	noop := func() {}
	if uploader == nil || inlineLimit <= 0 || int64(len(data)) <= inlineLimit {
		return BlobPart(mimeType, data), noop, nil
	}
	file, err := uploader.UploadFile(ctx, data, mimeType, name)
	if errors.Is(err, types.ErrUnsupported) {
		logger.Debug("Provider has no file API, sending large payload inline", zap.Int("size", len(data)))
		return BlobPart(mimeType, data), noop, nil
	}
	if err != nil {
		return Part{}, noop, err
	}
	logger.Debug("Uploaded payload to provider file API", zap.String("file", file.Name), zap.Int("size", len(data)))
	cleanup := func() {
		if err := uploader.DeleteFile(context.WithoutCancel(ctx), file.Name); err != nil {
			logger.Warn("Failed to delete uploaded file", zap.String("file", file.Name), zap.Error(err))
		}
	}
	return FilePart(file.MIMEType, file.URI), cleanup, nil
}

// orderedAttempts builds, for every model, one attempt with the instruction
// before the payload and one with the payload first.
func orderedAttempts(models []string, instruction string, payload Part, run func(ctx context.Context, model string, parts []Part) (string, error)) []Attempt[string] {
	attempts := make([]Attempt[string], 0, len(models)*2)
	for _, model := range models {
		attempts = append(attempts,
			Attempt[string]{
				Name: model + "/instruction-first",
				Run: func(ctx context.Context) (string, error) {
					return run(ctx, model, []Part{TextPart(instruction), payload})
				},
			},
			Attempt[string]{
				Name: model + "/payload-first",
				Run: func(ctx context.Context) (string, error) {
					return run(ctx, model, []Part{payload, TextPart(instruction)})
				},
			},
		)
	}
	return attempts
}
