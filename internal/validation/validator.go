package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"voice-dataset-collector/internal/datastore"
)

// MaxTextLen bounds the transcript length after trimming.
const MaxTextLen = 1000

// MaxSpeakerIDLen bounds the normalized speaker identifier.
const MaxSpeakerIDLen = 20

// Allowed value sets. Matching is case-insensitive; stored values are
// lower-cased. Optional sets additionally accept "" as unset.
var (
	Languages    = []string{"bengali", "english", "mixed"}
	Environments = []string{"noisy", "quiet"}
	Intents      = []string{"pick", "place", "push", "stop", "other"}
	Colors       = []string{"red", "green", "blue", "yellow", "black", "white"}
	Directions   = []string{"left", "right", "forward", "backward", "up", "down"}
)

// ValidationError reports the first field that failed validation along with
// the allowed set or range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Input holds the raw form strings as submitted by the client.
type Input struct {
	Text        string
	SpeakerID   string
	Language    string
	Environment string
	Intent      string
	ObjectColor string
	TargetColor string
	Direction   string
}

// Validate checks each field in a fixed order and returns a new entry with
// every value normalized, or the first *ValidationError encountered. Pure;
// no side effects.
func Validate(in Input, schema datastore.Schema) (*datastore.Entry, error) {
	e := &datastore.Entry{}

	// Length bounds count characters, not bytes: Bengali transcripts run
	// three UTF-8 bytes per codepoint.
	e.Text = strings.TrimSpace(in.Text)
	if n := utf8.RuneCountInString(e.Text); n == 0 || n > MaxTextLen {
		return nil, &ValidationError{Field: "text", Reason: fmt.Sprintf("must be 1-%d characters after trimming", MaxTextLen)}
	}

	if schema == datastore.SchemaExtended {
		e.SpeakerID = strings.ToUpper(strings.TrimSpace(in.SpeakerID))
		if n := utf8.RuneCountInString(e.SpeakerID); n == 0 || n > MaxSpeakerIDLen {
			return nil, &ValidationError{Field: "speaker_id", Reason: fmt.Sprintf("must be 1-%d characters after trimming", MaxSpeakerIDLen)}
		}
	}

	var err error
	if e.Language, err = matchEnum("language", in.Language, Languages, false); err != nil {
		return nil, err
	}
	if e.Environment, err = matchEnum("environment", in.Environment, Environments, false); err != nil {
		return nil, err
	}

	if schema == datastore.SchemaExtended {
		if e.Intent, err = matchEnum("intent", in.Intent, Intents, true); err != nil {
			return nil, err
		}
		if e.ObjectColor, err = matchEnum("object_color", in.ObjectColor, Colors, true); err != nil {
			return nil, err
		}
		if e.TargetColor, err = matchEnum("target_color", in.TargetColor, Colors, true); err != nil {
			return nil, err
		}
		if e.Direction, err = matchEnum("direction", in.Direction, Directions, true); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// matchEnum resolves value against allowed case-insensitively and returns
// the canonical lower-cased form. Optional enums accept "" as unset.
func matchEnum(field, value string, allowed []string, optional bool) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" && optional {
		return "", nil
	}
	for _, a := range allowed {
		if normalized == a {
			return normalized, nil
		}
	}
	return "", &ValidationError{Field: field, Reason: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))}
}
