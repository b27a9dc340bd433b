package evaluation

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/yungbote/cortex-backend/internal/platform/openai"
)

// Generator is the text-generation capability the pipeline runs on. It is
// stateless from the caller's view and may fail transiently.
type Generator interface {
	Generate(ctx context.Context, prompt string, img *Image) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, img *Image) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, img *Image) (string, error) {
	return f(ctx, prompt, img)
}

// Image is an inline diagram attached to a submission.
type Image struct {
	MimeType string
	Data     string // base64, no data: prefix
}

const defaultImageMime = "image/png"

// ParseImage accepts either a data URL (data:<mime>;base64,<data>) or bare
// base64 assumed to be PNG. Empty input yields nil.
func ParseImage(raw string) *Image {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	header, data, found := strings.Cut(raw, ",")
	if !found {
		return &Image{MimeType: defaultImageMime, Data: raw}
	}
	mime := defaultImageMime
	if rest, ok := strings.CutPrefix(header, "data:"); ok {
		if m, _, _ := strings.Cut(rest, ";"); strings.TrimSpace(m) != "" {
			mime = strings.TrimSpace(m)
		}
	}
	data = strings.TrimSpace(data)
	if data == "" {
		return nil
	}
	return &Image{MimeType: mime, Data: data}
}

func (i *Image) DataURL() string {
	return "data:" + i.MimeType + ";base64," + i.Data
}

// Valid reports whether Data decodes as standard base64.
func (i *Image) Valid() bool {
	if i == nil || i.Data == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(i.Data)
	return err == nil
}

const generatorSystem = "You are an engineering evaluation service. Follow the operating rules at the top of each message."

// NewOpenAIGenerator runs the pipeline on a chat completion client, sending
// images as data URLs.
func NewOpenAIGenerator(c openai.Client) Generator {
	return GeneratorFunc(func(ctx context.Context, prompt string, img *Image) (string, error) {
		if img == nil {
			return c.GenerateText(ctx, generatorSystem, prompt)
		}
		return c.GenerateTextWithImages(ctx, generatorSystem, prompt, []openai.ImageInput{{ImageURL: img.DataURL()}})
	})
}
