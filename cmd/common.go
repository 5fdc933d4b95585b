/*
Copyright © 2026 The palitran authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/translator"
)

// buildProvider constructs the configured translation provider.
func buildProvider(ctx context.Context, name, credentials, apiKey, model string) (translator.Provider, error) {
	switch name {
	case "google":
		return translator.NewGoogleProvider(ctx, credentials)
	case "openai":
		return translator.NewOpenAIProvider(apiKey, model), nil
	case "openrouter":
		return translator.NewOpenRouterProvider(apiKey, "", model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want google, openai or openrouter)", name)
	}
}

// parseLangs converts language code flags to corpus languages.
func parseLangs(codes []string) ([]corpus.Lang, error) {
	if len(codes) == 0 {
		return corpus.DefaultTargets, nil
	}
	langs := make([]corpus.Lang, 0, len(codes))
	for _, c := range codes {
		if c == "" {
			continue
		}
		langs = append(langs, corpus.Lang(c))
	}
	if len(langs) == 0 {
		return nil, fmt.Errorf("no target languages given")
	}
	return langs, nil
}
