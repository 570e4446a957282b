package types

// Message is a message of any kind delivered inside an update. The media
// payloads are mutually exclusive optional fields on the wire; absent fields
// stay nil and are never an error.
type Message struct {
	MessageID            int64              `json:"message_id"`
	From                 *User              `json:"from,omitempty"`
	Date                 int64              `json:"date,omitempty"`
	Chat                 *Chat              `json:"chat"`
	ForwardFrom          *User              `json:"forward_from,omitempty"`
	ForwardFromChat      *Chat              `json:"forward_from_chat,omitempty"`
	ForwardFromMessageID int64              `json:"forward_from_message_id,omitempty"`
	ForwardSignature     string             `json:"forward_signature,omitempty"`
	ForwardDate          int64              `json:"forward_date,omitempty"`
	ReplyToMessage       *Message           `json:"reply_to_message,omitempty"`
	EditDate             int64              `json:"edit_date,omitempty"`
	MediaGroupID         string             `json:"media_group_id,omitempty"`
	AuthorSignature      string             `json:"author_signature,omitempty"`
	Text                 string             `json:"text,omitempty"`
	Entities             []MessageEntity    `json:"entities,omitempty"`
	CaptionEntities      []MessageEntity    `json:"caption_entities,omitempty"`
	Audio                *Audio             `json:"audio,omitempty"`
	Document             *Document          `json:"document,omitempty"`
	Photo                []PhotoSize        `json:"photo,omitempty"`
	Sticker              *Sticker           `json:"sticker,omitempty"`
	Video                *Video             `json:"video,omitempty"`
	Voice                *Voice             `json:"voice,omitempty"`
	VideoNote            *VideoNote         `json:"video_note,omitempty"`
	Caption              string             `json:"caption,omitempty"`
	Contact              *Contact           `json:"contact,omitempty"`
	Location             *Location          `json:"location,omitempty"`
	Venue                *Venue             `json:"venue,omitempty"`
	NewChatMembers       []User             `json:"new_chat_members,omitempty"`
	LeftChatMember       *User              `json:"left_chat_member,omitempty"`
	NewChatTitle         string             `json:"new_chat_title,omitempty"`
	NewChatPhoto         []PhotoSize        `json:"new_chat_photo,omitempty"`
	DeleteChatPhoto      bool               `json:"delete_chat_photo,omitempty"`
	GroupChatCreated     bool               `json:"group_chat_created,omitempty"`
	MigrateToChatID      int64              `json:"migrate_to_chat_id,omitempty"`
	MigrateFromChatID    int64              `json:"migrate_from_chat_id,omitempty"`
	PinnedMessage        *Message           `json:"pinned_message,omitempty"`
	Invoice              *Invoice           `json:"invoice,omitempty"`
	SuccessfulPayment    *SuccessfulPayment `json:"successful_payment,omitempty"`
}

func (m *Message) validate(path string) error {
	if m.MessageID == 0 {
		return missingField(path, "message_id")
	}
	if m.Chat == nil {
		return missingField(path, "chat")
	}
	if err := m.Chat.validate(path + ".chat"); err != nil {
		return err
	}
	// Sender is absent for channel posts; validate only when present.
	if m.From != nil {
		if err := m.From.validate(path + ".from"); err != nil {
			return err
		}
	}
	if m.ReplyToMessage != nil {
		if err := m.ReplyToMessage.validate(path + ".reply_to_message"); err != nil {
			return err
		}
	}
	return nil
}

// Sender returns the message author, nil for channel posts.
func (m *Message) Sender() *User { return m.From }
