// Package model holds the records exchanged between the drivers, the CLI and the
// foreign-call surface.
package model

import (
	"encoding/json"
	"fmt"
)

// FormatJSON is the only payload format produced by the analyzers.
const FormatJSON = "application/json"

// TextEntry is one extracted string. Source, Path and Key never change after
// extraction; Text carries the translation once one is known.
type TextEntry struct {
	Source string `json:"source" validate:"required"`
	Path   string `json:"path" validate:"required"`
	Key    string `json:"key"`
	Text   string `json:"text,omitempty"`
}

// Translated reports whether the entry carries a translation to write back.
func (e TextEntry) Translated() bool {
	return e.Text != ""
}

// Output is the analyze result envelope. Exactly one of Payload and ErrorMessage is set.
type Output struct {
	Format       string  `json:"format"`
	Payload      string  `json:"payload"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Success wraps a payload value, encoding it to JSON.
func Success(payload any) Output {
	data, err := json.Marshal(payload)
	if err != nil {
		return Failure(fmt.Sprintf("encode payload: %v", err))
	}
	return Output{Format: FormatJSON, Payload: string(data)}
}

// Failure builds an envelope carrying only an error message.
func Failure(message string) Output {
	return Output{Format: FormatJSON, ErrorMessage: &message}
}

// Failed reports whether the envelope carries an error.
func (o Output) Failed() bool {
	return o.ErrorMessage != nil
}

// Err returns the envelope's error message as an error, or nil.
func (o Output) Err() error {
	if o.ErrorMessage == nil {
		return nil
	}
	return fmt.Errorf("%s", *o.ErrorMessage)
}

// Font is a font file shipped with a project.
type Font struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// AssetEntry is a listed engine asset file.
type AssetEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Payload is the analyze result. Engine, Source and Strings are always present; the
// rest depends on the engine.
type Payload struct {
	Engine         string       `json:"engine"`
	Source         string       `json:"source"`
	Strings        []TextEntry  `json:"strings"`
	Fonts          []Font       `json:"fonts,omitempty"`
	Entries        []AssetEntry `json:"entries,omitempty"`
	FilesProcessed int          `json:"filesProcessed"`
	FilesFailed    int          `json:"filesFailed"`
}

// DecodePayload parses a successful envelope's payload.
func DecodePayload(out Output) (*Payload, error) {
	if err := out.Err(); err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal([]byte(out.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &p, nil
}

// SaveWarning is a translated entry whose path no longer resolves.
type SaveWarning struct {
	File   string `json:"file"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// SaveReport summarises a save.
type SaveReport struct {
	FilesWritten []string      `json:"filesWritten"`
	Applied      int           `json:"applied"`
	Warnings     []SaveWarning `json:"warnings,omitempty"`
}

// ScriptTarget names the script file and function a runtime text hook patches.
type ScriptTarget struct {
	Path     string `json:"path"`
	Function string `json:"function"`
}
