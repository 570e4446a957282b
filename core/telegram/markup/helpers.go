package markup

// ReplyRows builds a reply keyboard markup from rows of button labels.
func ReplyRows(rows ...[]string) (*ReplyKeyboardMarkup, error) {
	k, err := NewKeyboard()
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if i > 0 {
			k.AppendRow()
		}
		for _, label := range row {
			if err := k.AppendButton(Button{Text: label}); err != nil {
				return nil, err
			}
		}
	}
	return NewReplyKeyboardMarkup(k)
}

// InlineRows builds an inline keyboard markup from rows of inline buttons.
func InlineRows(rows ...[]InlineButton) (*InlineKeyboardMarkup, error) {
	k, err := NewKeyboard()
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if i > 0 {
			k.AppendRow()
		}
		for _, btn := range row {
			if err := k.AppendButton(btn); err != nil {
				return nil, err
			}
		}
	}
	return NewInlineKeyboardMarkup(k)
}

// ChunkInline splits a flat list of inline buttons into rows with up to n
// buttons per row. If n <= 1 every button gets its own row.
func ChunkInline(buttons []InlineButton, n int) (*InlineKeyboardMarkup, error) {
	if n <= 1 {
		n = 1
	}
	var rows [][]InlineButton
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return InlineRows(rows...)
}
