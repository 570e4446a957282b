package types

// CallbackQuery signals which inline button was pressed. Data is an opaque
// payload token, never command text.
type CallbackQuery struct {
	ID              string    `json:"id"`
	From            *User     `json:"from"`
	Message         *Message  `json:"message,omitempty"`
	InlineMessageID string    `json:"inline_message_id,omitempty"`
	ChatInstance    string    `json:"chat_instance,omitempty"`
	Data            string    `json:"data,omitempty"`
	GameShortName   string    `json:"game_short_name,omitempty"`
	Location        *Location `json:"location,omitempty"`
}

func (q *CallbackQuery) validate(path string) error {
	if q.ID == "" {
		return missingField(path, "id")
	}
	if q.From == nil {
		return missingField(path, "from")
	}
	if err := q.From.validate(path + ".from"); err != nil {
		return err
	}
	if q.Message != nil {
		if err := q.Message.validate(path + ".message"); err != nil {
			return err
		}
	}
	return nil
}

// InlineQuery is an incoming inline query.
type InlineQuery struct {
	ID       string    `json:"id"`
	From     *User     `json:"from"`
	Location *Location `json:"location,omitempty"`
	Query    string    `json:"query"`
	Offset   string    `json:"offset"`
}

func (q *InlineQuery) validate(path string) error {
	if q.ID == "" {
		return missingField(path, "id")
	}
	if q.From == nil {
		return missingField(path, "from")
	}
	return q.From.validate(path + ".from")
}

// ChosenInlineResult reports an inline result picked by the user.
type ChosenInlineResult struct {
	ResultID        string    `json:"result_id"`
	From            *User     `json:"from"`
	Location        *Location `json:"location,omitempty"`
	InlineMessageID string    `json:"inline_message_id,omitempty"`
	Query           string    `json:"query"`
}

func (r *ChosenInlineResult) validate(path string) error {
	if r.ResultID == "" {
		return missingField(path, "result_id")
	}
	if r.From == nil {
		return missingField(path, "from")
	}
	return r.From.validate(path + ".from")
}

// ShippingQuery asks for shipping options during checkout.
type ShippingQuery struct {
	ID              string           `json:"id"`
	From            *User            `json:"from"`
	InvoicePayload  string           `json:"invoice_payload"`
	ShippingAddress *ShippingAddress `json:"shipping_address"`
}

func (q *ShippingQuery) validate(path string) error {
	if q.ID == "" {
		return missingField(path, "id")
	}
	if q.From == nil {
		return missingField(path, "from")
	}
	if err := q.From.validate(path + ".from"); err != nil {
		return err
	}
	if q.ShippingAddress == nil {
		return missingField(path, "shipping_address")
	}
	return nil
}

// PreCheckoutQuery is the final confirmation request before payment.
type PreCheckoutQuery struct {
	ID               string     `json:"id"`
	From             *User      `json:"from"`
	Currency         string     `json:"currency"`
	TotalAmount      int64      `json:"total_amount"`
	InvoicePayload   string     `json:"invoice_payload"`
	ShippingOptionID string     `json:"shipping_option_id,omitempty"`
	OrderInfo        *OrderInfo `json:"order_info,omitempty"`
}

func (q *PreCheckoutQuery) validate(path string) error {
	if q.ID == "" {
		return missingField(path, "id")
	}
	if q.From == nil {
		return missingField(path, "from")
	}
	if err := q.From.validate(path + ".from"); err != nil {
		return err
	}
	if q.Currency == "" {
		return missingField(path, "currency")
	}
	return nil
}
