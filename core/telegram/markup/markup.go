// Package markup builds reply keyboards declaratively. A keyboard holds rows
// of one consistent button kind; reply and inline buttons never mix within
// the same keyboard.
package markup

import (
	"encoding/json"
	"fmt"
)

// Markup is implemented by every reply-markup shape accepted by outbound
// send/edit calls. Serialization matches the wire format exactly.
type Markup interface {
	json.Marshaler
}

type buttonKind int

const (
	kindReply buttonKind = iota + 1
	kindInline
)

// KeyboardButton is either a reply Button or an InlineButton.
type KeyboardButton interface {
	json.Marshaler
	kind() buttonKind
	check() error
}

// Button is a plain reply keyboard button.
type Button struct {
	Text            string
	RequestContact  bool
	RequestLocation bool
}

func (b Button) kind() buttonKind { return kindReply }

func (b Button) check() error {
	if b.Text == "" {
		return fmt.Errorf("markup: button text is empty")
	}
	return nil
}

// MarshalJSON renders the wire shape of a reply button.
func (b Button) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"text":             b.Text,
		"request_contact":  b.RequestContact,
		"request_location": b.RequestLocation,
	})
}

// InlineButton is an inline keyboard button; either URL or CallbackData must
// be set.
type InlineButton struct {
	Text                         string
	URL                          string
	CallbackData                 string
	SwitchInlineQuery            string
	SwitchInlineQueryCurrentChat string
	Pay                          bool
}

func (b InlineButton) kind() buttonKind { return kindInline }

func (b InlineButton) check() error {
	if b.Text == "" {
		return fmt.Errorf("markup: inline button text is empty")
	}
	if b.URL == "" && b.CallbackData == "" {
		return fmt.Errorf("markup: inline button %q needs url or callback_data", b.Text)
	}
	return nil
}

// MarshalJSON renders the wire shape of an inline button.
func (b InlineButton) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"text":                             b.Text,
		"url":                              b.URL,
		"callback_data":                    b.CallbackData,
		"switch_inline_query":              b.SwitchInlineQuery,
		"switch_inline_query_current_chat": b.SwitchInlineQueryCurrentChat,
		"pay":                              b.Pay,
	})
}

// Keyboard is an ordered grid of buttons of one consistent kind. The zero
// value is not usable; construct with NewKeyboard.
type Keyboard struct {
	rows [][]KeyboardButton
	kd   buttonKind
}

// NewKeyboard builds a keyboard from the supplied rows, validating that every
// button is well formed and of the same kind. With no rows the keyboard
// starts with a single empty row.
func NewKeyboard(rows ...[]KeyboardButton) (*Keyboard, error) {
	k := &Keyboard{}
	if len(rows) == 0 {
		k.rows = [][]KeyboardButton{{}}
		return k, nil
	}
	for _, row := range rows {
		k.rows = append(k.rows, []KeyboardButton{})
		for _, btn := range row {
			if err := k.AppendButton(btn); err != nil {
				return nil, err
			}
		}
	}
	return k, nil
}

// Len returns the total number of buttons across all rows.
func (k *Keyboard) Len() int {
	n := 0
	for _, row := range k.rows {
		n += len(row)
	}
	return n
}

// Rows returns the number of rows, including empty ones.
func (k *Keyboard) Rows() int { return len(k.rows) }

// AppendRow appends a new empty row.
func (k *Keyboard) AppendRow() *Keyboard {
	k.rows = append(k.rows, []KeyboardButton{})
	return k
}

// AppendButton appends a button to the row at the given index, defaulting to
// the last row. An out-of-range index is an error.
func (k *Keyboard) AppendButton(btn KeyboardButton, row ...int) error {
	if err := btn.check(); err != nil {
		return err
	}
	if k.kd == 0 {
		k.kd = btn.kind()
	} else if k.kd != btn.kind() {
		return fmt.Errorf("markup: cannot mix reply and inline buttons in one keyboard")
	}

	idx := len(k.rows) - 1
	if len(row) > 0 {
		idx = row[0]
	}
	if idx < 0 || idx >= len(k.rows) {
		return fmt.Errorf("markup: no row at index %d", idx)
	}
	k.rows[idx] = append(k.rows[idx], btn)
	return nil
}

func (k *Keyboard) isInline() bool { return k.kd == kindInline }

// MarshalJSON renders the nested rows-of-buttons wire shape, preserving row
// and column order.
func (k *Keyboard) MarshalJSON() ([]byte, error) {
	rows := k.rows
	if rows == nil {
		rows = [][]KeyboardButton{}
	}
	return json.Marshal(rows)
}

// ReplyKeyboardMarkup replaces the user's on-screen keyboard.
type ReplyKeyboardMarkup struct {
	Keyboard        *Keyboard
	ResizeKeyboard  bool
	OneTimeKeyboard bool
	Selective       bool
}

// NewReplyKeyboardMarkup wraps a reply-kind keyboard with the usual resize
// and one-time flags enabled.
func NewReplyKeyboardMarkup(k *Keyboard) (*ReplyKeyboardMarkup, error) {
	if k == nil {
		return nil, fmt.Errorf("markup: nil keyboard")
	}
	if k.isInline() {
		return nil, fmt.Errorf("markup: reply markup requires reply buttons")
	}
	return &ReplyKeyboardMarkup{Keyboard: k, ResizeKeyboard: true, OneTimeKeyboard: true}, nil
}

// MarshalJSON renders the replykeyboardmarkup wire object.
func (m *ReplyKeyboardMarkup) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"keyboard":          m.Keyboard,
		"resize_keyboard":   m.ResizeKeyboard,
		"one_time_keyboard": m.OneTimeKeyboard,
		"selective":         m.Selective,
	})
}

// InlineKeyboardMarkup attaches an inline button grid to a message.
type InlineKeyboardMarkup struct {
	Keyboard *Keyboard
}

// NewInlineKeyboardMarkup wraps an inline-kind keyboard.
func NewInlineKeyboardMarkup(k *Keyboard) (*InlineKeyboardMarkup, error) {
	if k == nil {
		return nil, fmt.Errorf("markup: nil keyboard")
	}
	if !k.isInline() {
		return nil, fmt.Errorf("markup: inline markup requires inline buttons")
	}
	return &InlineKeyboardMarkup{Keyboard: k}, nil
}

// MarshalJSON renders the inlinekeyboardmarkup wire object.
func (m *InlineKeyboardMarkup) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"inline_keyboard": m.Keyboard,
	})
}

// ReplyKeyboardRemove asks clients to drop the current custom keyboard.
type ReplyKeyboardRemove struct {
	Selective bool
}

// MarshalJSON renders the replykeyboardremove wire object.
func (m *ReplyKeyboardRemove) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"remove_keyboard": true,
		"selective":       m.Selective,
	})
}

// ForceReply asks clients to open a reply interface automatically.
type ForceReply struct {
	Selective bool
}

// MarshalJSON renders the forcereply wire object.
func (m *ForceReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"force_reply": true,
		"selective":   m.Selective,
	})
}
