package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// MessageKind classifies an upstream text frame.
type MessageKind string

const (
	KindToolCall      MessageKind = "tool_call"
	KindAgentResponse MessageKind = "agent_response"
	KindTranscript    MessageKind = "user_transcript"
	KindMetadata      MessageKind = "metadata"
	KindAudio         MessageKind = "audio"
	KindError         MessageKind = "error"
	KindHeartbeat     MessageKind = "heartbeat"
	KindOther         MessageKind = "other"
)

// ToolCall is a client tool invocation requested by the agent.
type ToolCall struct {
	Name       string          `json:"tool_name"`
	ID         string          `json:"tool_call_id"`
	Parameters json.RawMessage `json:"parameters"`
}

// Message is a classified upstream text frame.
type Message struct {
	Kind MessageKind
	// Type is the frame's raw "type" field.
	Type string
	// Text carries agent responses, transcripts and error messages.
	Text           string
	ToolCall       *ToolCall
	ConversationID string
	Raw            []byte

	audio   []byte
	eventID json.RawMessage
}

type textEvent struct {
	AgentResponse  string          `json:"agent_response"`
	CorrectedText  string          `json:"corrected_agent_response"`
	UserTranscript string          `json:"user_transcript"`
	ConversationID string          `json:"conversation_id"`
	AudioBase64    string          `json:"audio_base_64"`
	EventID        json.RawMessage `json:"event_id"`
}

type envelope struct {
	Type string `json:"type"`

	ClientToolCall          *ToolCall  `json:"client_tool_call"`
	PingEvent               *textEvent `json:"ping_event"`
	AgentResponseEvent      *textEvent `json:"agent_response_event"`
	AgentResponseCorrection *textEvent `json:"agent_response_correction_event"`
	UserTranscriptionEvent  *textEvent `json:"user_transcription_event"`
	InitiationMetadata      *textEvent `json:"conversation_initiation_metadata_event"`
	AudioEvent              *textEvent `json:"audio_event"`

	// Older agent builds put these at the top level.
	Text    json.RawMessage `json:"text"`
	Audio   json.RawMessage `json:"audio"`
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// Classify parses an upstream text frame. Frames that are not JSON objects
// are KindOther.
func Classify(data []byte) Message {
	msg := Message{Kind: KindOther, Raw: data}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return msg
	}
	msg.Type = env.Type

	switch env.Type {
	case "ping":
		msg.Kind = KindHeartbeat
		if env.PingEvent != nil {
			msg.eventID = env.PingEvent.EventID
		}

	case "client_tool_call":
		if env.ClientToolCall != nil && env.ClientToolCall.Name != "" {
			msg.Kind = KindToolCall
			msg.ToolCall = env.ClientToolCall
		}

	case "agent_response":
		msg.Kind = KindAgentResponse
		if env.AgentResponseEvent != nil {
			msg.Text = env.AgentResponseEvent.AgentResponse
		}

	case "agent_response_correction":
		msg.Kind = KindAgentResponse
		if env.AgentResponseCorrection != nil {
			msg.Text = env.AgentResponseCorrection.CorrectedText
		}

	case "speech":
		msg.Kind = KindAgentResponse
		msg.Text = rawString(env.Text)

	case "user_transcript":
		msg.Kind = KindTranscript
		if env.UserTranscriptionEvent != nil {
			msg.Text = env.UserTranscriptionEvent.UserTranscript
		}

	case "conversation_initiation_metadata":
		msg.Kind = KindMetadata
		if env.InitiationMetadata != nil {
			msg.ConversationID = env.InitiationMetadata.ConversationID
		}

	case "audio":
		encoded := rawString(env.Audio)
		if env.AudioEvent != nil && env.AudioEvent.AudioBase64 != "" {
			encoded = env.AudioEvent.AudioBase64
		}
		if pcm, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(pcm) > 0 {
			msg.Kind = KindAudio
			msg.audio = pcm
		}

	case "error":
		msg.Kind = KindError
		msg.Text = errorText(env)
	}
	return msg
}

// rawString returns raw as a string, or "" when it is not a JSON string.
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func errorText(env envelope) string {
	for _, raw := range []json.RawMessage{env.Message, env.Error, env.Data} {
		if len(raw) == 0 {
			continue
		}
		if s := rawString(raw); s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return "upstream agent reported an error"
}

type pong struct {
	Type    string          `json:"type"`
	EventID json.RawMessage `json:"event_id"`
}

// pongFor builds the heartbeat reply for a ping.
func pongFor(msg Message) []byte {
	id := msg.eventID
	if len(id) == 0 || strings.TrimSpace(string(id)) == "" {
		id = json.RawMessage("0")
	}
	out, _ := json.Marshal(pong{Type: "pong", EventID: id})
	return out
}
