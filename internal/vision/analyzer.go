package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/klarity/internal/observability"
	"github.com/rs/zerolog/log"
)

var (
	ErrImageRequired = errors.New("vision: image data is required")
	ErrInvalidImage  = errors.New("vision: image is not valid base64 or data url")
	ErrEmptyReply    = errors.New("vision: empty response from model")
)

// Analyzer reads the acts printed on a quote image.
type Analyzer interface {
	Analyze(ctx context.Context, img Image) ([]AnalyzedAct, error)
	Provider() string
}

// AnalyzedAct is one line read off the quote. Code is nil when not printed.
type AnalyzedAct struct {
	Code        *string `json:"code"`
	Description string  `json:"description"`
	Price       Amount  `json:"price"`
	Type        string  `json:"type"`
}

// CodeOr returns the printed code or fallback.
func (a AnalyzedAct) CodeOr(fallback string) string {
	if a.Code == nil || strings.TrimSpace(*a.Code) == "" {
		return fallback
	}
	return strings.TrimSpace(*a.Code)
}

// Amount is a euro amount that also accepts "550,00 €" style strings.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.NewReplacer("€", "", "EUR", "", " ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(s)
		if raw == "" {
			*a = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("vision: invalid price %s: %w", string(data), err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("vision: invalid price %s: not a finite number", string(data))
	}
	*a = Amount(v)
	return nil
}

// Image is decoded upload data.
type Image struct {
	MIMEType string
	Data     []byte
}

// DecodeImage accepts a data url ("data:image/png;base64,...") or bare base64.
func DecodeImage(raw string) (Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Image{}, ErrImageRequired
	}
	mimeType := ""
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		header, body, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return Image{}, ErrInvalidImage
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return Image{}, ErrImageRequired
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Image{MIMEType: mimeType, Data: data}, nil
}

// Instrumented records duration and outcome of every analysis.
type Instrumented struct {
	Analyzer Analyzer
	Node     string
}

func (i Instrumented) Provider() string {
	return i.Analyzer.Provider()
}

func (i Instrumented) Analyze(ctx context.Context, img Image) ([]AnalyzedAct, error) {
	start := time.Now()
	acts, err := i.Analyzer.Analyze(ctx, img)
	elapsed := time.Since(start)
	observability.RecordVision(i.Node, i.Provider(), elapsed, err == nil)
	if err != nil {
		log.Error().
			Str("provider", i.Provider()).
			Str("mime", img.MIMEType).
			Dur("duration", elapsed).
			Err(err).
			Msg("vision_analyze_failed")
		return nil, err
	}
	log.Info().
		Str("provider", i.Provider()).
		Int("acts", len(acts)).
		Dur("duration", elapsed).
		Msg("vision_analyze")
	return acts, nil
}
