package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleProvider translates through the Google Cloud Translation API.
type GoogleProvider struct {
	client *translate.Client
}

// NewGoogleProvider creates the underlying client once; it is reused for the
// whole session. credentialsFile may be empty to use ambient credentials.
func NewGoogleProvider(ctx context.Context, credentialsFile string) (*GoogleProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating translate client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", req.TargetLang, err)
	}

	var opts *translate.Options
	if req.SourceLang != "" && req.SourceLang != "auto" {
		if source, perr := language.Parse(req.SourceLang); perr == nil {
			opts = &translate.Options{Source: source}
		}
	}

	translations, err := p.client.Translate(ctx, []string{req.Text}, target, opts)
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	if len(translations) == 0 {
		return nil, &TransientError{Err: fmt.Errorf("no translation returned")}
	}

	return &Result{
		ProviderName:   p.Name(),
		TranslatedText: translations[0].Text,
		Latency:        time.Since(start),
	}, nil
}

func (p *GoogleProvider) IsAvailable(ctx context.Context) error {
	if p.client == nil {
		return fmt.Errorf("google translate client not initialised")
	}
	return nil
}

// Close releases the underlying client.
func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	// Non-API errors are network level.
	return &TransientError{Err: err}
}
