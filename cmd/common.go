/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/humanizer/internal/config"
	"github.com/valpere/humanizer/internal/store"
	"github.com/valpere/humanizer/internal/strategy"
)

// buildRegistry registers every built-in strategy. Remote strategies are
// registered even when unconfigured; they fail on first use with a
// non-retryable error instead.
func buildRegistry(c *config.Config) (*strategy.Registry, error) {
	reg := strategy.NewRegistry(
		strategy.Identity{},
		strategy.Casual{},
		strategy.NewOllama(c.Ollama.URL, c.Ollama.Model),
		strategy.NewOpenRouter(c.OpenRouter.APIKey, c.OpenRouter.URL, c.OpenRouter.Model),
	)

	rt, err := strategy.NewRoundTrip(c.Google.SourceLang, c.Google.Credentials)
	if err != nil {
		return nil, fmt.Errorf("roundtrip strategy: %w", err)
	}
	reg.Register(rt)
	return reg, nil
}

// openStore opens the sqlite database, creating its directory if needed.
func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
