package datastore

import (
	"time"
)

// AudioExt is the container extension given to every stored recording.
// The browser recorder submits webm/opus, so the extension is fixed.
const AudioExt = ".webm"

// Entry is a single collected recording with its annotations.
// The extended fields (SpeakerID, Intent, ObjectColor, TargetColor,
// Direction) are empty under the base schema.
type Entry struct {
	Filename    string    `json:"filename" bson:"filename"`
	SpeakerID   string    `json:"speaker_id,omitempty" bson:"speaker_id,omitempty"`
	Text        string    `json:"text" bson:"text"`
	Language    string    `json:"language" bson:"language"`
	Environment string    `json:"environment" bson:"environment"`
	Intent      string    `json:"intent,omitempty" bson:"intent,omitempty"`
	ObjectColor string    `json:"object_color,omitempty" bson:"object_color,omitempty"`
	TargetColor string    `json:"target_color,omitempty" bson:"target_color,omitempty"`
	Direction   string    `json:"direction,omitempty" bson:"direction,omitempty"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`

	// Audio holds the decoded recording bytes. Populated on reads that
	// request audio; never serialized to JSON responses.
	Audio []byte `json:"-" bson:"-"`

	// AudioBase64 is the recording in its submitted base64 form. The
	// document backend persists this directly instead of re-encoding.
	AudioBase64 string `json:"-" bson:"audio_base64,omitempty"`
}

// Schema selects which annotation columns a deployment records.
type Schema int

const (
	// SchemaBase is the original field set: text, language, environment.
	SchemaBase Schema = iota
	// SchemaExtended adds speaker_id and the command annotation fields.
	SchemaExtended
)

func (s Schema) String() string {
	if s == SchemaExtended {
		return "extended"
	}
	return "base"
}

// Columns returns the CSV column order for the schema. Export and the
// filesystem ledger share this single definition.
func (s Schema) Columns() []string {
	if s == SchemaExtended {
		return []string{
			"filename", "speaker_id", "text", "language", "environment",
			"intent", "object_color", "target_color", "direction", "timestamp",
		}
	}
	return []string{"filename", "text", "language", "environment", "timestamp"}
}

// Record renders the entry as one CSV row in the schema's column order.
func (e *Entry) Record(s Schema) []string {
	ts := e.Timestamp.UTC().Format(time.RFC3339Nano)
	if s == SchemaExtended {
		return []string{
			e.Filename, e.SpeakerID, e.Text, e.Language, e.Environment,
			e.Intent, e.ObjectColor, e.TargetColor, e.Direction, ts,
		}
	}
	return []string{e.Filename, e.Text, e.Language, e.Environment, ts}
}

// setColumn assigns a single CSV cell back onto the entry, by column name.
// Used by the filesystem backend when reading the ledger.
func (e *Entry) setColumn(name, value string) {
	switch name {
	case "filename":
		e.Filename = value
	case "speaker_id":
		e.SpeakerID = value
	case "text":
		e.Text = value
	case "language":
		e.Language = value
	case "environment":
		e.Environment = value
	case "intent":
		e.Intent = value
	case "object_color":
		e.ObjectColor = value
	case "target_color":
		e.TargetColor = value
	case "direction":
		e.Direction = value
	case "timestamp":
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			e.Timestamp = t
		}
	}
}
