// Package id provides ID generation helpers used across services.
package id

import (
	nanoid "github.com/matoous/go-nanoid/v2"
)

const DefaultLength = 21

const (
	PrefixAgent          = "agent"
	PrefixSession         = "sess"
	PrefixMessage         = "msg"
	PrefixUserFact        = "fact"
	PrefixExtractionTask  = "xtask"
	PrefixLLMProvider     = "prov"
	PrefixSTTConnection   = "stt"
	PrefixActiveTTS       = "tts"
	PrefixPluginInstance  = "plug"
	PrefixCachedContext   = "ctx"
)

func New(prefix string) string {
	id, err := nanoid.New(DefaultLength)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return prefix + "_" + id
}

func NewWithLength(prefix string, length int) string {
	id, err := nanoid.New(length)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return prefix + "_" + id
}

func NewAgent() string         { return New(PrefixAgent) }
func NewSession() string       { return New(PrefixSession) }
func NewMessage() string       { return New(PrefixMessage) }
func NewUserFact() string      { return New(PrefixUserFact) }
func NewExtractionTask() string { return New(PrefixExtractionTask) }
func NewLLMProvider() string   { return New(PrefixLLMProvider) }
func NewSTTConnection() string { return New(PrefixSTTConnection) }
func NewActiveTTS() string     { return New(PrefixActiveTTS) }
func NewPluginInstance() string { return New(PrefixPluginInstance) }
func NewCachedContext() string { return New(PrefixCachedContext) }
