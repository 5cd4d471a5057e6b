/*
 * This file is part of Speechdev (https://github.com/fadejevs/speechdev).
 * Copyright (C) 2025 Speechdev
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Cleaner rewrites raw transcript fragments into clean, readable sentences.
type Cleaner interface {
	Clean(ctx context.Context, text string) (string, error)
}

// ErrRejected marks a cleanup result that failed validation. Callers fall
// back to the raw transcript text and keep it out of the broadcast path.
var ErrRejected = errors.New("cleanup result rejected")

// minCleanedLength is the shortest cleanup result accepted as real output.
const minCleanedLength = 4

// refusalPhrases are known model responses that indicate the cleanup call
// answered about the task instead of performing it.
var refusalPhrases = []string{
	"no text provided",
	"i cannot",
	"i'm sorry",
	"as an ai",
	"please provide",
}

// ValidateCleaned rejects empty, too-short, or refusal-style cleanup output.
func ValidateCleaned(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("%w: empty result", ErrRejected)
	}

	if utf8.RuneCountInString(trimmed) < minCleanedLength {
		return fmt.Errorf("%w: result too short: %q", ErrRejected, trimmed)
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("%w: refusal phrase %q", ErrRejected, phrase)
		}
	}

	return nil
}
