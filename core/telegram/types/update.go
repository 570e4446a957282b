package types

import "encoding/json"

// UpdateKind identifies which of the mutually exclusive update payloads is
// populated.
type UpdateKind int

const (
	// KindUnknown means no supported payload is present.
	KindUnknown UpdateKind = iota
	KindMessage
	KindEditedMessage
	KindChannelPost
	KindEditedChannelPost
	KindInlineQuery
	KindChosenInlineResult
	KindCallbackQuery
	KindShippingQuery
	KindPreCheckoutQuery
)

var kindNames = map[UpdateKind]string{
	KindUnknown:            "unknown",
	KindMessage:            "message",
	KindEditedMessage:      "edited_message",
	KindChannelPost:        "channel_post",
	KindEditedChannelPost:  "edited_channel_post",
	KindInlineQuery:        "inline_query",
	KindChosenInlineResult: "chosen_inline_result",
	KindCallbackQuery:      "callback_query",
	KindShippingQuery:      "shipping_query",
	KindPreCheckoutQuery:   "pre_checkout_query",
}

// String returns the wire name of the update kind.
func (k UpdateKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Update is the root envelope delivered to the webhook. Exactly one of the
// payload fields is populated per delivery; the rest stay nil. Immutable once
// decoded.
type Update struct {
	UpdateID           int64               `json:"update_id"`
	Message            *Message            `json:"message,omitempty"`
	EditedMessage      *Message            `json:"edited_message,omitempty"`
	ChannelPost        *Message            `json:"channel_post,omitempty"`
	EditedChannelPost  *Message            `json:"edited_channel_post,omitempty"`
	InlineQuery        *InlineQuery        `json:"inline_query,omitempty"`
	ChosenInlineResult *ChosenInlineResult `json:"chosen_inline_result,omitempty"`
	CallbackQuery      *CallbackQuery      `json:"callback_query,omitempty"`
	ShippingQuery      *ShippingQuery      `json:"shipping_query,omitempty"`
	PreCheckoutQuery   *PreCheckoutQuery   `json:"pre_checkout_query,omitempty"`
}

// Kind selects the populated payload variant.
func (u *Update) Kind() UpdateKind {
	switch {
	case u.Message != nil:
		return KindMessage
	case u.EditedMessage != nil:
		return KindEditedMessage
	case u.ChannelPost != nil:
		return KindChannelPost
	case u.EditedChannelPost != nil:
		return KindEditedChannelPost
	case u.InlineQuery != nil:
		return KindInlineQuery
	case u.ChosenInlineResult != nil:
		return KindChosenInlineResult
	case u.CallbackQuery != nil:
		return KindCallbackQuery
	case u.ShippingQuery != nil:
		return KindShippingQuery
	case u.PreCheckoutQuery != nil:
		return KindPreCheckoutQuery
	default:
		return KindUnknown
	}
}

// ParseUpdate decodes a wire-format update and validates every populated
// sub-object. An update with no supported payload decodes fine; rejecting it
// is the dispatcher's call.
func ParseUpdate(data []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, &DecodeError{Path: "update", Err: err}
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

func (u *Update) validate() error {
	if u.Message != nil {
		if err := u.Message.validate("message"); err != nil {
			return err
		}
	}
	if u.EditedMessage != nil {
		if err := u.EditedMessage.validate("edited_message"); err != nil {
			return err
		}
	}
	if u.ChannelPost != nil {
		if err := u.ChannelPost.validate("channel_post"); err != nil {
			return err
		}
	}
	if u.EditedChannelPost != nil {
		if err := u.EditedChannelPost.validate("edited_channel_post"); err != nil {
			return err
		}
	}
	if u.InlineQuery != nil {
		if err := u.InlineQuery.validate("inline_query"); err != nil {
			return err
		}
	}
	if u.ChosenInlineResult != nil {
		if err := u.ChosenInlineResult.validate("chosen_inline_result"); err != nil {
			return err
		}
	}
	if u.CallbackQuery != nil {
		if err := u.CallbackQuery.validate("callback_query"); err != nil {
			return err
		}
	}
	if u.ShippingQuery != nil {
		if err := u.ShippingQuery.validate("shipping_query"); err != nil {
			return err
		}
	}
	if u.PreCheckoutQuery != nil {
		if err := u.PreCheckoutQuery.validate("pre_checkout_query"); err != nil {
			return err
		}
	}
	return nil
}
