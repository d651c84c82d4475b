package signal

import (
	"encoding/json"
	"fmt"

	"roomchat/internal/core/domain"
	"roomchat/pkg/validation"
)

type FrameType string

const (
	FrameMessage        FrameType = "message"
	FrameAddReaction    FrameType = "add_reaction"
	FrameRemoveReaction FrameType = "remove_reaction"
)

// Frame is one decoded inbound client frame. The set of implementations is
// closed: MessageFrame, AddReactionFrame and RemoveReactionFrame.
type Frame interface {
	Type() FrameType
	sealed()
}

type MessageFrame struct {
	Content  string
	ViewOnce bool
}

type AddReactionFrame struct {
	MessageID domain.MessageID
	Emoji     string
}

type RemoveReactionFrame struct {
	MessageID domain.MessageID
	Emoji     string
}

func (MessageFrame) Type() FrameType        { return FrameMessage }
func (AddReactionFrame) Type() FrameType    { return FrameAddReaction }
func (RemoveReactionFrame) Type() FrameType { return FrameRemoveReaction }

func (MessageFrame) sealed()        {}
func (AddReactionFrame) sealed()    {}
func (RemoveReactionFrame) sealed() {}

// wireFrame is the union of every inbound field.
type wireFrame struct {
	Type      string  `json:"type"`
	Content   *string `json:"content"`
	ViewOnce  bool    `json:"view_once"`
	MessageID string  `json:"message_id"`
	Emoji     string  `json:"emoji"`
}

// DecodeFrame parses data into a Frame. It fails with domain.ErrMalformedFrame
// when the JSON is invalid or a required field is missing, and with
// domain.ErrUnknownFrameType for any other type tag.
func DecodeFrame(data []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)
	}

	switch FrameType(w.Type) {
	case FrameMessage:
		if w.Content == nil {
			return nil, fmt.Errorf("%w: content is required", domain.ErrMalformedFrame)
		}
		if err := validation.ValidateContent(*w.Content); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)
		}
		return MessageFrame{Content: *w.Content, ViewOnce: w.ViewOnce}, nil

	case FrameAddReaction, FrameRemoveReaction:
		if w.MessageID == "" {
			return nil, fmt.Errorf("%w: message_id is required", domain.ErrMalformedFrame)
		}
		if err := validation.ValidateEmoji(w.Emoji); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)
		}
		if FrameType(w.Type) == FrameAddReaction {
			return AddReactionFrame{MessageID: domain.MessageID(w.MessageID), Emoji: w.Emoji}, nil
		}
		return RemoveReactionFrame{MessageID: domain.MessageID(w.MessageID), Emoji: w.Emoji}, nil

	case "":
		return nil, fmt.Errorf("%w: type is required", domain.ErrMalformedFrame)

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFrameType, w.Type)
	}
}
