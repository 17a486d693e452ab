// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const redacted = "********"

// YAML renders the effective configuration with secrets redacted.
func (c Config) YAML() ([]byte, error) {
	if c.Store.Redis.Password != "" {
		c.Store.Redis.Password = redacted
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
